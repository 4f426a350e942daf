package di

import (
	"reflect"
	"testing"
)

type widget struct{ name string }

func TestRegisterAndResolve(t *testing.T) {
	c := NewContainer()
	c.Register("widget", &widget{name: "a"})

	w, err := Resolve[*widget](c, "widget")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.name != "a" {
		t.Errorf("name = %q", w.name)
	}

	if _, err := Resolve[*widget](c, "missing"); err == nil {
		t.Error("missing service should fail")
	}
	if _, err := Resolve[string](c, "widget"); err == nil {
		t.Error("wrong type should fail")
	}
}

func TestMustResolvePanicsOnMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustResolve[*widget](NewContainer(), "nope")
}

func TestRequireAndNames(t *testing.T) {
	c := NewContainer()
	c.Register(LLM, 1)
	c.Register(Config, 2)

	if err := c.Require(Config, LLM); err != nil {
		t.Errorf("Require: %v", err)
	}
	if err := c.Require(Config, Export); err == nil {
		t.Error("Require should report the missing export service")
	}
	if got := c.GetNames(); !reflect.DeepEqual(got, []string{Config, LLM}) {
		t.Errorf("names = %v", got)
	}

	c.Remove(LLM)
	if c.Has(LLM) {
		t.Error("removed service still present")
	}
	c.Clear()
	if len(c.GetNames()) != 0 {
		t.Error("Clear left services behind")
	}
}

func TestGetContainerIsSingleton(t *testing.T) {
	if GetContainer() != GetContainer() {
		t.Fatal("GetContainer should return one instance")
	}
}

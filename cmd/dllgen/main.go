// cmd/dllgen/main.go
//
// dllgen generates a Daily Lesson Log from a YAML lesson file without the web
// UI and writes the Word document next to it.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/DLLArchitect/internal/app"
	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/di"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/services"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

type options struct {
	configDir string
	input     string
	logo      string
	exemplar  string
	outDir    string
	printPage bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "config", ".", "directory holding config.yaml")
	flag.StringVar(&opts.input, "input", "lesson.yaml", "lesson metadata in YAML")
	flag.StringVar(&opts.logo, "logo", "", "school logo image")
	flag.StringVar(&opts.exemplar, "exemplar", "", "lesson exemplar (PDF, text or image)")
	flag.StringVar(&opts.outDir, "out", ".", "output directory")
	flag.BoolVar(&opts.printPage, "print", false, "also write the printable HTML page")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	written, err := run(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dllgen:", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

// loadLesson decodes a lesson file. Unknown keys are rejected so typos do not
// silently drop a field.
func loadLesson(path string) (models.LessonInput, error) {
	var in models.LessonInput
	f, err := os.Open(path)
	if err != nil {
		return in, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

func run(ctx context.Context, opts options) ([]string, error) {
	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return nil, errors.New(services.MissingCredentialHelp)
		}
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	lesson, err := loadLesson(opts.input)
	if err != nil {
		return nil, err
	}

	c := di.NewContainer()
	if err := app.InitServices(cfg, c); err != nil {
		return nil, err
	}
	form := di.MustResolve[*services.FormService](c, di.Form)
	gen := di.MustResolve[*services.GenerationService](c, di.Generation)
	export := di.MustResolve[*services.ExportService](c, di.Export)

	draft, err := draftFromLesson(form, lesson, opts)
	if err != nil {
		return nil, err
	}
	utils.GetLogger().Info("generating daily lesson log", map[string]interface{}{"draft_id": draft.ID})

	draft, err = gen.GenerateDraft(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	return writeExports(export, draft, opts)
}

// draftFromLesson creates a draft holding the lesson fields and any files.
// Files named on the command line replace files inlined in the lesson.
func draftFromLesson(form *services.FormService, lesson models.LessonInput, opts options) (*models.Draft, error) {
	draft, err := form.NewDraft()
	if err != nil {
		return nil, err
	}
	if values := lesson.Values(); len(values) > 0 {
		if draft, err = form.SetFields(draft.ID, values); err != nil {
			return nil, err
		}
	}
	for field, a := range map[string]*models.Attachment{models.FieldLogoFile: lesson.LogoFile, models.FieldExemplarFile: lesson.ExemplarFile} {
		if a.IsEmpty() {
			continue
		}
		if draft, err = attachInline(form, draft.ID, field, a); err != nil {
			return nil, err
		}
	}
	for field, path := range map[string]string{models.FieldLogoFile: opts.logo, models.FieldExemplarFile: opts.exemplar} {
		if path == "" {
			continue
		}
		if draft, err = attach(form, draft.ID, field, path); err != nil {
			return nil, err
		}
	}
	return draft, nil
}

func attach(form *services.FormService, id, field, path string) (*models.Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return form.AttachFile(id, field, filepath.Base(path), "", f)
}

// attachInline decodes a base64 attachment from the lesson file and stores it
// through the same checks as an upload.
func attachInline(form *services.FormService, id, field string, a *models.Attachment) (*models.Draft, error) {
	data, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64 data: %w", field, err)
	}
	name := a.Name
	if name == "" {
		name = field
	}
	return form.AttachFile(id, field, name, a.MimeType, bytes.NewReader(data))
}

func writeExports(export *services.ExportService, draft *models.Draft, opts options) ([]string, error) {
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return nil, err
	}

	doc, err := export.ExportDoc(draft)
	if err != nil {
		return nil, err
	}
	docPath := filepath.Join(opts.outDir, strings.NewReplacer("/", "-", "\\", "-").Replace(doc.Filename))
	if err := os.WriteFile(docPath, []byte(doc.Content), 0644); err != nil {
		return nil, err
	}
	written := []string{docPath}

	if opts.printPage {
		page, err := export.PrintView(draft)
		if err != nil {
			return written, err
		}
		htmlPath := docPath[:len(docPath)-len(filepath.Ext(docPath))] + ".html"
		if err := os.WriteFile(htmlPath, []byte(page.Content), 0644); err != nil {
			return written, err
		}
		written = append(written, htmlPath)
	}
	return written, nil
}

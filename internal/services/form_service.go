// internal/services/form_service.go
package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Corphon/DLLArchitect/internal/config"
	apperrors "github.com/Corphon/DLLArchitect/internal/errors"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// MissingSourceMessage is shown when generation has nothing to work from.
const MissingSourceMessage = "Please provide a learning competency, a lesson exemplar, or an exemplar file before generating."

// LogoSize is the bounding box of stored logos, in pixels.
const LogoSize = 120

// FormService owns draft editing.
type FormService struct {
	store    *storage.DraftStore
	locks    *LockManager
	cfg      config.FormConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewFormService(store *storage.DraftStore, locks *LockManager, cfg config.FormConfig) *FormService {
	return &FormService{
		store:    store,
		locks:    locks,
		cfg:      cfg,
		validate: newLessonValidator(),
		now:      time.Now,
	}
}

// newLessonValidator registers the grounding rule: a competency, an exemplar
// text or an exemplar file must be present.
func newLessonValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(models.LessonInput)
		if !in.HasGroundingSource() {
			sl.ReportError(in.Competency, "competency", "Competency", "grounding", "")
		}
	}, models.LessonInput{})
	return v
}

// ValidateForGeneration is the pre-submission guard.
func (s *FormService) ValidateForGeneration(input models.LessonInput) error {
	return validateLessonInput(s.validate, input)
}

func validateLessonInput(v *validator.Validate, input models.LessonInput) error {
	if err := v.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.NewValidationError(MissingSourceMessage, nil)
		}
		return apperrors.NewValidationError("invalid lesson input", err)
	}
	return nil
}

// NewDraft creates a draft pre-filled with the configured defaults.
func (s *FormService) NewDraft() (*models.Draft, error) {
	now := s.now()
	d := &models.Draft{
		ID:        uuid.NewString(),
		Status:    models.DraftEditing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for key, value := range s.cfg.Defaults {
		if !d.Input.Set(key, value) {
			utils.GetLogger().Warn("ignoring unknown form default", map[string]interface{}{"key": key})
		}
	}
	if err := s.store.Save(d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// GetDraft returns the draft or a not-found error.
func (s *FormService) GetDraft(id string) (*models.Draft, error) {
	d, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			return nil, apperrors.NewNotFoundError("draft not found", err)
		}
		return nil, err
	}
	return d, nil
}

// update applies fn to the draft under its lock and persists the result.
func (s *FormService) update(id string, fn func(d *models.Draft) error) (*models.Draft, error) {
	var out *models.Draft
	err := s.locks.ExecuteWithDraftLock(id, func() error {
		d, err := s.GetDraft(id)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		d.UpdatedAt = s.now()
		if err := s.store.Save(d); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		out = d
		return nil
	})
	return out, err
}

// SetField replaces exactly one text field.
func (s *FormService) SetField(id, key, value string) (*models.Draft, error) {
	return s.SetFields(id, map[string]string{key: value})
}

// SetFields replaces several text fields. Unknown keys reject the whole
// update.
func (s *FormService) SetFields(id string, values map[string]string) (*models.Draft, error) {
	var unknown []string
	for key := range values {
		if !models.IsTextField(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown field: %s", strings.Join(unknown, ", ")), nil)
	}

	return s.update(id, func(d *models.Draft) error {
		for key, value := range values {
			d.Input.Set(key, value)
		}
		return nil
	})
}

// AttachFile reads an upload into the named file slot.
func (s *FormService) AttachFile(id, field, filename, declaredType string, r io.Reader) (*models.Draft, error) {
	if !models.IsFileField(field) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown file field: %s", field), nil)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError("could not read upload", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("file is larger than %d MB", s.cfg.MaxUploadBytes>>20), nil)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("file is empty", nil)
	}

	var attachment *models.Attachment
	switch field {
	case models.FieldExemplarFile:
		attachment, err = exemplarAttachment(filename, declaredType, data)
	case models.FieldLogoFile:
		attachment, err = logoAttachment(filename, declaredType, data)
	}
	if err != nil {
		return nil, err
	}

	return s.update(id, func(d *models.Draft) error {
		d.Input.SetFile(field, attachment)
		return nil
	})
}

// RemoveFile clears a file slot.
func (s *FormService) RemoveFile(id, field string) (*models.Draft, error) {
	if !models.IsFileField(field) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown file field: %s", field), nil)
	}
	return s.update(id, func(d *models.Draft) error {
		d.Input.SetFile(field, nil)
		return nil
	})
}

// Reset discards the generated plan and returns the draft to editing. The
// form input is kept.
func (s *FormService) Reset(id string) (*models.Draft, error) {
	return s.update(id, func(d *models.Draft) error {
		if d.Status == models.DraftGenerating {
			return apperrors.NewConflictError("generation in progress", nil)
		}
		d.Plan = nil
		d.GeneratedAt = nil
		d.Error = ""
		d.Status = models.DraftEditing
		return nil
	})
}

// detectMIME sniffs data and falls back to the declared type when sniffing
// finds nothing specific.
func detectMIME(declaredType string, data []byte) string {
	detected := mimetype.Detect(data)
	mt := strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
	if mt == "application/octet-stream" && declaredType != "" {
		mt = strings.TrimSpace(strings.SplitN(declaredType, ";", 2)[0])
	}
	return mt
}

func exemplarAttachment(filename, declaredType string, data []byte) (*models.Attachment, error) {
	mt := detectMIME(declaredType, data)
	if mt != "application/pdf" && mt != "text/plain" && !strings.HasPrefix(mt, "image/") {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("exemplar must be a PDF, a text file or an image (got %s)", mt), nil)
	}
	return &models.Attachment{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mt,
		Name:     filepath.Base(filename),
	}, nil
}

// logoAttachment shrinks raster logos to fit LogoSize and re-encodes them as
// PNG. Formats imaging cannot decode (SVG, WebP) are kept as uploaded.
func logoAttachment(filename, declaredType string, data []byte) (*models.Attachment, error) {
	mt := detectMIME(declaredType, data)
	if !strings.HasPrefix(mt, "image/") {
		return nil, apperrors.NewValidationError(fmt.Sprintf("logo must be an image (got %s)", mt), nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		utils.GetLogger().Debug("logo kept as uploaded", map[string]interface{}{"mime": mt, "error": err})
		return &models.Attachment{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: mt,
			Name:     filepath.Base(filename),
		}, nil
	}

	thumb := imaging.Fit(img, LogoSize, LogoSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, apperrors.NewValidationError("could not process logo", err)
	}
	return &models.Attachment{
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: "image/png",
		Name:     filepath.Base(filename),
	}, nil
}

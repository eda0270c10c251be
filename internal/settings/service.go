package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/filename"
	"go-cloud-clipper/internal/model"
)

// Service is the typed boundary over the raw store. Every read resolves
// documented defaults, so callers never deal with missing keys; every write
// publishes a change event.
type Service struct {
	store Store
	bus   event.Bus
}

func NewService(store Store, bus event.Bus) *Service {
	return &Service{store: store, bus: bus}
}

// AuthToken returns the stored access token, or "" when the user has not
// authenticated yet.
func (s *Service) AuthToken(ctx context.Context) (string, error) {
	var token string
	found, err := s.getJSON(ctx, KeyAuthToken, &token)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return token, nil
}

func (s *Service) SetAuthToken(ctx context.Context, token string) error {
	if token == "" {
		return model.ErrInvalidInput
	}
	return s.setJSON(ctx, KeyAuthToken, token)
}

func (s *Service) ClearAuthToken(ctx context.Context) error {
	return s.store.Delete(ctx, KeyAuthToken)
}

// Resolve loads the full typed settings view. Saved templates are merged
// with the defaults so parts added in newer releases show up for existing
// configurations.
func (s *Service) Resolve(ctx context.Context) (model.Settings, error) {
	out := model.DefaultSettings()

	if _, err := s.getJSON(ctx, KeyDefaultFolderID, &out.DefaultFolderID); err != nil {
		return model.Settings{}, err
	}
	if _, err := s.getJSON(ctx, KeyDefaultFolderPath, &out.DefaultFolderPath); err != nil {
		return model.Settings{}, err
	}
	if _, err := s.getJSON(ctx, KeyDomainRules, &out.DomainRules); err != nil {
		return model.Settings{}, err
	}
	if _, err := s.getJSON(ctx, KeyDocFormat, &out.DocFormat); err != nil {
		return model.Settings{}, err
	}
	if _, err := s.getJSON(ctx, KeyDocIncludeMeta, &out.DocIncludeMeta); err != nil {
		return model.Settings{}, err
	}
	if _, err := s.getJSON(ctx, KeyTheme, &out.Theme); err != nil {
		return model.Settings{}, err
	}

	var saved []model.TemplatePart
	if found, err := s.getJSON(ctx, KeyImageTemplate, &saved); err != nil {
		return model.Settings{}, err
	} else if found {
		out.ImageTemplate = filename.MergeWithDefaults(saved, model.DefaultImageTemplate())
	}

	saved = nil
	if found, err := s.getJSON(ctx, KeyTextTemplate, &saved); err != nil {
		return model.Settings{}, err
	} else if found {
		out.TextTemplate = filename.MergeWithDefaults(saved, model.DefaultTextTemplate())
	}

	saved = nil
	if found, err := s.getJSON(ctx, KeyDocTemplate, &saved); err != nil {
		return model.Settings{}, err
	} else if found {
		out.DocTemplate = filename.MergeWithDefaults(saved, model.DefaultDocTemplate())
	}

	return out, nil
}

// Update persists the whole typed view and announces the change.
func (s *Service) Update(ctx context.Context, in model.Settings) error {
	writes := []struct {
		key   string
		value any
	}{
		{KeyDefaultFolderID, in.DefaultFolderID},
		{KeyDefaultFolderPath, in.DefaultFolderPath},
		{KeyDomainRules, in.DomainRules},
		{KeyImageTemplate, in.ImageTemplate},
		{KeyTextTemplate, in.TextTemplate},
		{KeyDocTemplate, in.DocTemplate},
		{KeyDocFormat, in.DocFormat},
		{KeyDocIncludeMeta, in.DocIncludeMeta},
		{KeyTheme, in.Theme},
	}

	for _, w := range writes {
		if err := s.setJSON(ctx, w.key, w.value); err != nil {
			return err
		}
	}

	s.publishChanged()
	return nil
}

func (s *Service) DomainRules(ctx context.Context) ([]model.DomainRule, error) {
	var rules []model.DomainRule
	if _, err := s.getJSON(ctx, KeyDomainRules, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Service) SetDomainRules(ctx context.Context, rules []model.DomainRule) error {
	if err := s.setJSON(ctx, KeyDomainRules, rules); err != nil {
		return err
	}
	s.publishChanged()
	return nil
}

func (s *Service) License(ctx context.Context) (model.LicenseRecord, bool, error) {
	var record model.LicenseRecord
	found, err := s.getJSON(ctx, KeyLicense, &record)
	if err != nil {
		return model.LicenseRecord{}, false, err
	}
	return record, found, nil
}

func (s *Service) SetLicense(ctx context.Context, record model.LicenseRecord) error {
	return s.setJSON(ctx, KeyLicense, record)
}

func (s *Service) ClearLicense(ctx context.Context) error {
	return s.store.Delete(ctx, KeyLicense)
}

func (s *Service) getJSON(ctx context.Context, key string, target any) (bool, error) {
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode setting %q: %w", key, err)
	}
	return true, nil
}

func (s *Service) setJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	return s.store.Set(ctx, key, raw)
}

func (s *Service) publishChanged() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeSettingsChanged,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

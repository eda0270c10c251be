// Package license gates premium features. A license key is a signed JWT the
// vendor issues at purchase time; the manager verifies keys offline and can
// restore a purchase by email through the vendor API.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/settings"
)

var (
	ErrInvalidKey     = errors.New("license key is invalid")
	ErrRestoreFailed  = errors.New("license restore failed")
	ErrNoLicenseFound = errors.New("no license found for this email")
)

// claims is the payload a vendor-issued license key carries.
type claims struct {
	jwt.RegisteredClaims
	Status       string `json:"status"`
	ProductType  string `json:"productType"`
	Email        string `json:"email"`
	OrderID      string `json:"orderId"`
	PurchaseDate string `json:"purchaseDate"`
}

// Manager verifies, persists and broadcasts the account's license state.
type Manager struct {
	settings   *settings.Service
	bus        event.Bus
	signingKey []byte
	apiBase    string
	http       *http.Client
	logger     *slog.Logger
}

func NewManager(settingsSvc *settings.Service, bus event.Bus, signingKey, apiBase string, logger *slog.Logger) *Manager {
	return &Manager{
		settings:   settingsSvc,
		bus:        bus,
		signingKey: []byte(signingKey),
		apiBase:    apiBase,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Current returns the cached license, or a free-tier record when nothing has
// ever been activated.
func (m *Manager) Current(ctx context.Context) model.LicenseRecord {
	record, found, err := m.settings.License(ctx)
	if err != nil {
		m.logger.Error("read cached license", "error", err)
		return model.LicenseRecord{Status: model.LicenseFree}
	}
	if !found {
		return model.LicenseRecord{Status: model.LicenseFree}
	}
	return record
}

// IsPremium reports whether premium features are unlocked.
func (m *Manager) IsPremium(ctx context.Context) bool {
	return m.Current(ctx).Premium()
}

// Activate verifies the key offline, persists the resulting record and
// broadcasts the change. The cached license is untouched on failure.
func (m *Manager) Activate(ctx context.Context, key string) (model.LicenseRecord, error) {
	record, err := m.verify(key)
	if err != nil {
		return model.LicenseRecord{}, err
	}

	if err := m.store(ctx, record); err != nil {
		return model.LicenseRecord{}, err
	}
	return record, nil
}

// Restore asks the vendor API for the license attached to email and caches
// it. Any failure leaves the current cache in place so a flaky network never
// downgrades a paying user.
func (m *Manager) Restore(ctx context.Context, email string) (model.LicenseRecord, error) {
	if email == "" {
		return model.LicenseRecord{}, fmt.Errorf("%w: email required", model.ErrInvalidInput)
	}

	payload, _ := json.Marshal(map[string]string{"email": email})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiBase+"/licenses/restore", bytes.NewReader(payload))
	if err != nil {
		return model.LicenseRecord{}, fmt.Errorf("build restore request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Warn("license restore unreachable", "error", err)
		return model.LicenseRecord{}, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.LicenseRecord{}, ErrNoLicenseFound
	}
	if resp.StatusCode != http.StatusOK {
		return model.LicenseRecord{}, fmt.Errorf("%w: status %d", ErrRestoreFailed, resp.StatusCode)
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return model.LicenseRecord{}, fmt.Errorf("%w: decode response: %v", ErrRestoreFailed, err)
	}

	record, err := m.verify(body.Key)
	if err != nil {
		return model.LicenseRecord{}, err
	}

	if err := m.store(ctx, record); err != nil {
		return model.LicenseRecord{}, err
	}
	return record, nil
}

// Deactivate drops back to the free tier.
func (m *Manager) Deactivate(ctx context.Context) error {
	if err := m.settings.ClearLicense(ctx); err != nil {
		return err
	}
	m.publish(model.LicenseRecord{Status: model.LicenseFree})
	return nil
}

func (m *Manager) verify(key string) (model.LicenseRecord, error) {
	parsed, err := jwt.ParseWithClaims(key, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return model.LicenseRecord{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return model.LicenseRecord{}, ErrInvalidKey
	}

	status := model.LicenseStatus(c.Status)
	switch status {
	case model.LicensePremium, model.LicenseMaster:
	default:
		return model.LicenseRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidKey, c.Status)
	}

	return model.LicenseRecord{
		Status:       status,
		ProductType:  c.ProductType,
		Key:          key,
		Email:        c.Email,
		OrderID:      c.OrderID,
		PurchaseDate: c.PurchaseDate,
	}, nil
}

func (m *Manager) store(ctx context.Context, record model.LicenseRecord) error {
	if err := m.settings.SetLicense(ctx, record); err != nil {
		return fmt.Errorf("persist license: %w", err)
	}
	m.publish(record)
	m.logger.Info("license updated", "status", record.Status, "product", record.ProductType)
	return nil
}

func (m *Manager) publish(record model.LicenseRecord) {
	m.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeLicenseChanged,
		Payload:   record,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

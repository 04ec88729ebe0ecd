package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-hrskip-automation/internal/models"
)

const fileName = "applications.json"

type fileState struct {
	Applications []*models.Application `json:"applications"`
	Users        []*models.User        `json:"users"`
}

// File is a Memory store mirrored to a JSON file after every write. It is
// meant for single-process local runs without Postgres.
type File struct {
	*Memory
	path   string
	saveMu sync.Mutex
}

// OpenFile creates or loads the store under dir.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	f := &File{Memory: NewMemory(), path: filepath.Join(dir, fileName)}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	out, err := f.Memory.CreateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	return out, f.save()
}

func (f *File) UpdateApplication(ctx context.Context, app *models.Application, from models.ApplicationStatus) error {
	if err := f.Memory.UpdateApplication(ctx, app, from); err != nil {
		return err
	}
	return f.save()
}

func (f *File) SaveUser(ctx context.Context, u *models.User) error {
	if err := f.Memory.SaveUser(ctx, u); err != nil {
		return err
	}
	return f.save()
}

func (f *File) RecordActivity(ctx context.Context, userID string, success bool, at time.Time) error {
	if err := f.Memory.RecordActivity(ctx, userID, success, at); err != nil {
		return err
	}
	return f.save()
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	f.restore(st)
	log.Printf("📋 Loaded %d applications and %d users from %s", len(st.Applications), len(st.Users), f.path)
	return nil
}

// save writes the whole state through a temp file. saveMu keeps snapshots
// and writes in the same order.
func (f *File) save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	data, err := json.MarshalIndent(f.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", fileName, err)
	}
	return nil
}

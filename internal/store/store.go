// Package store holds the read-shared snapshots of the patient and
// consultation collections. Every screen reads through here; no screen
// mutates the snapshots directly. Mutators invalidate after writing and
// the next read reloads, which is the convergence model: last write
// wins, reload-after-mutation reconciles.
package store

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/pkg/recordstore"
)

const (
	keyPatients      = "patients"
	keyConsultations = "consultations"
)

type Store struct {
	client *recordstore.Client
	cache  *gocache.Cache
}

func New(client *recordstore.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{
		client: client,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Patients returns the patient collection, served from the snapshot
// cache when fresh.
func (s *Store) Patients(ctx context.Context) ([]model.Patient, error) {
	if v, ok := s.cache.Get(keyPatients); ok {
		return v.([]model.Patient), nil
	}
	patients, err := recordstore.List[model.Patient](ctx, s.client, recordstore.CollectionPatients)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	s.cache.SetDefault(keyPatients, patients)
	return patients, nil
}

// Consultations returns the consultation collection, served from the
// snapshot cache when fresh.
func (s *Store) Consultations(ctx context.Context) ([]model.Consultation, error) {
	if v, ok := s.cache.Get(keyConsultations); ok {
		return v.([]model.Consultation), nil
	}
	consultations, err := recordstore.List[model.Consultation](ctx, s.client, recordstore.CollectionConsultations)
	if err != nil {
		return nil, fmt.Errorf("failed to load consultations: %w", err)
	}
	s.cache.SetDefault(keyConsultations, consultations)
	return consultations, nil
}

// Invalidate drops both snapshots. Called after every mutation so the
// next read observes the store's truth, including writes whose
// responses were lost.
func (s *Store) Invalidate() {
	s.cache.Delete(keyPatients)
	s.cache.Delete(keyConsultations)
}

// Client exposes the underlying record store client for mutators.
func (s *Store) Client() *recordstore.Client {
	return s.client
}

// Package registry owns the process-wide mapping from model identifier to
// fitted grading pipeline. Entries are immutable once stored: training builds
// a complete replacement entry off-registry and installs it in a single map
// write, so concurrent readers always observe a classifier together with the
// scaler and encoder it was fit with.
package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"academiaml/grading"
	"academiaml/ml"
)

// DefaultTemplateID marks synthetic bootstrap entries created for model
// identifiers that were never trained.
const DefaultTemplateID = "default"

// Entry is one model's complete inference pipeline plus metadata. The scaler
// and encoder were fit together with the classifier and must never be paired
// with another entry's classifier. Treat stored entries as read-only.
type Entry struct {
	ModelID    string
	Classifier ml.Classifier
	Scaler     *ml.StandardScaler
	Encoder    *ml.LabelEncoder
	TemplateID string
	ModelType  string
	Accuracy   float64
	CreatedAt  time.Time
}

// Bootstrap reports whether the entry is a synthetic default model rather
// than one trained on real labeled data.
func (e *Entry) Bootstrap() bool {
	return e.TemplateID == DefaultTemplateID
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

func (r *Registry) Get(modelID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[modelID]
	return entry, ok
}

// Put installs entry as the complete replacement for modelID.
func (r *Registry) Put(modelID string, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ModelID = modelID
	r.entries[modelID] = entry
}

// Delete removes the entry, classifier, scaler and encoder together.
func (r *Registry) Delete(modelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[modelID]; !ok {
		return false
	}
	delete(r.entries, modelID)
	return true
}

// List returns the entries that hold a fitted classifier.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.Classifier != nil {
			out = append(out, entry)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EnsureDefault returns the entry for modelID, creating and storing a
// synthetic bootstrap entry when none exists. The bootstrap classifier is fit
// on random features and labels purely so the identifier is servable before
// any training; its predictions are low quality by construction. The build
// happens outside the lock; when two callers race, the first stored entry
// wins and the losing build is discarded (builds are deterministic anyway).
func (r *Registry) EnsureDefault(modelID string) (*Entry, error) {
	if entry, ok := r.Get(modelID); ok {
		return entry, nil
	}

	entry, err := buildBootstrapEntry()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[modelID]; ok {
		return existing, nil
	}
	entry.ModelID = modelID
	r.entries[modelID] = entry
	return entry, nil
}

func buildBootstrapEntry() (*Entry, error) {
	const (
		samples  = 100
		features = grading.FeatureCount
	)
	rng := rand.New(rand.NewSource(42))

	X := make([][]float64, samples)
	labels := make([]string, samples)
	for i := range X {
		row := make([]float64, features)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		X[i] = row
		labels[i] = grading.DefaultClassOrder[rng.Intn(len(grading.DefaultClassOrder))]
	}

	encoder := &ml.LabelEncoder{}
	if err := encoder.Fit(labels); err != nil {
		return nil, fmt.Errorf("bootstrap encoder: %w", err)
	}
	y, err := encoder.TransformAll(labels)
	if err != nil {
		return nil, fmt.Errorf("bootstrap encoder: %w", err)
	}

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(X); err != nil {
		return nil, fmt.Errorf("bootstrap scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(X)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scaler: %w", err)
	}

	classifier := ml.NewRandomForest(50, 5)
	if err := classifier.Fit(scaled, y); err != nil {
		return nil, fmt.Errorf("bootstrap fit: %w", err)
	}

	return &Entry{
		Classifier: classifier,
		Scaler:     scaler,
		Encoder:    encoder,
		TemplateID: DefaultTemplateID,
		ModelType:  classifier.Type(),
		Accuracy:   0,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

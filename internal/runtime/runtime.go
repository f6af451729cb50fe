// Package runtime holds the state a server needs after startup: the core
// buffers, the schema snapshot, the policy, the audit store and the drift
// monitor.
//
// Everything loaded by Load is read-only afterwards. Any failure while
// loading, a corrupt schema packet included, aborts startup.
package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/aiir/internal/artifact"
	"github.com/roach88/aiir/internal/config"
	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/drift"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/store"
)

// Service is the name reported by Health.
const Service = "ai-ir-runtime-native"

// MaxPreviewBytes caps the adapt bytes returned by Render.
const MaxPreviewBytes = 4096

// Render errors.
var (
	ErrUnknownFile = errors.New("unknown file id")
	ErrBadPacket   = errors.New("malformed artifact packet")
	ErrBadAdapt    = errors.New("adapt row out of range")
)

// Runtime is the loaded state.
type Runtime struct {
	cfg        *config.Config
	core       *corpus.Core
	snap       *schema.Snapshot
	store      *store.Store
	drift      *drift.Monitor
	dispatcher *dispatch.Dispatcher
}

// Options adjusts how Load builds its collaborators.
type Options struct {
	StoreOptions []store.Option
	Now          func() time.Time
}

// Load reads the core directory named by cfg and prepares every
// collaborator.
func Load(cfg *config.Config, opts Options) (*Runtime, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	core, err := corpus.LoadCore(cfg.CoreDir)
	if err != nil {
		return nil, fmt.Errorf("load core: %w", err)
	}
	c, err := container.DecodeWords(core.DBPacket, container.SchemaProfile)
	if err != nil {
		return nil, fmt.Errorf("load schema packet: %w", err)
	}
	snap, err := schema.Load(c)
	if err != nil {
		return nil, fmt.Errorf("load schema packet: %w", err)
	}

	st, err := store.Open(cfg.WALPath, append([]store.Option{store.WithClock(now)}, opts.StoreOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	if err := store.WriteSnapshot(cfg.SnapshotPath, now(), map[string]any{"files": core.Files()}); err != nil {
		st.Close()
		return nil, err
	}
	mon, err := drift.New(cfg.CoreDir, cfg.DriftCheckEvery)
	if err != nil {
		st.Close()
		return nil, err
	}

	rt := &Runtime{
		cfg:        cfg,
		core:       core,
		snap:       snap,
		store:      st,
		drift:      mon,
		dispatcher: dispatch.New(snap, cfg.Policy, dispatch.WithAuditSink(st)),
	}
	slog.Info("runtime loaded",
		"core_dir", cfg.CoreDir,
		"files", core.Files(),
		"ops", len(snap.Ops()),
		"db_exec", cfg.Policy.DBExec,
	)
	return rt, nil
}

// Close releases the audit store.
func (r *Runtime) Close() error {
	return r.store.Close()
}

// Config returns the configuration the runtime was loaded with.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Dispatcher returns the request dispatcher.
func (r *Runtime) Dispatcher() *dispatch.Dispatcher { return r.dispatcher }

// Drift returns the drift monitor.
func (r *Runtime) Drift() *drift.Monitor { return r.drift }

// Store returns the audit store.
func (r *Runtime) Store() *store.Store { return r.store }

// Snapshot returns the schema snapshot.
func (r *Runtime) Snapshot() *schema.Snapshot { return r.snap }

// Meta describes the loaded buffers.
type Meta struct {
	Files            int `json:"files"`
	LiteBlobWords    int `json:"liteBlobWords"`
	SourceAdaptRows  int `json:"sourceAdaptRows"`
	SourceAdaptWords int `json:"sourceAdaptWords"`
	DBPacketWords    int `json:"dbPacketWords"`
}

// Meta returns the buffer sizes.
func (r *Runtime) Meta() Meta {
	return Meta{
		Files:            r.core.Files(),
		LiteBlobWords:    len(r.core.LiteBlob),
		SourceAdaptRows:  r.core.AdaptRows(),
		SourceAdaptWords: len(r.core.AdaptBlob),
		DBPacketWords:    len(r.core.DBPacket),
	}
}

// Render is the summary of one artifact.
type Render struct {
	FileID uint32 `json:"fileId"`
	artifact.Summary
	HasSourceFallback bool   `json:"hasSourceFallback"`
	SourceFallbackLen int    `json:"sourceFallbackLen"`
	SourcePreview     string `json:"sourcePreview"`
}

// Render summarizes the artifact of file id. The packet is validated on
// every call; a corrupt packet is a per-request error, never fatal.
func (r *Runtime) Render(id uint32) (Render, error) {
	words, ok := r.core.Packet(id)
	if !ok {
		return Render{}, ErrUnknownFile
	}
	c, err := container.DecodeWords(words, container.ArtifactProfile)
	if err != nil {
		return Render{}, fmt.Errorf("%w: %w", ErrBadPacket, err)
	}

	out := Render{FileID: id, Summary: artifact.Summarize(c, artifact.FallbackCodeInfo)}
	src, found, ok := r.core.Adapt(id)
	if !ok {
		return Render{}, ErrBadAdapt
	}
	if found {
		out.HasSourceFallback = len(src) > 0
		out.SourceFallbackLen = len(src)
		out.SourcePreview = string(src[:min(len(src), MaxPreviewBytes)])
	}
	return out, nil
}

// Health is the liveness report.
type Health struct {
	OK         int          `json:"ok"`
	Service    string       `json:"service"`
	DBMode     string       `json:"dbMode"`
	DriftCount uint64       `json:"driftCount"`
	Checks     uint64       `json:"checks"`
	Policy     HealthPolicy `json:"policy"`
	State      HealthState  `json:"state"`
}

// HealthPolicy is the policy part of Health.
type HealthPolicy struct {
	AllowDBExec bool `json:"allowDbExec"`
	AllowAllOps bool `json:"allowAllOps"`
}

// HealthState reports the state files.
type HealthState struct {
	WALPath        string `json:"walPath"`
	WALExists      int    `json:"walExists"`
	SnapshotPath   string `json:"snapshotPath"`
	SnapshotExists int    `json:"snapshotExists"`
}

// Health reports counters and state file presence.
func (r *Runtime) Health() Health {
	counts := r.drift.Counts()
	return Health{
		OK:         1,
		Service:    Service,
		DBMode:     r.cfg.DBExecMode,
		DriftCount: counts.Drift,
		Checks:     counts.Checks,
		Policy: HealthPolicy{
			AllowDBExec: r.cfg.Policy.DBExec,
			AllowAllOps: r.cfg.Policy.AllOps,
		},
		State: HealthState{
			WALPath:        r.cfg.WALPath,
			WALExists:      exists(r.cfg.WALPath),
			SnapshotPath:   r.cfg.SnapshotPath,
			SnapshotExists: exists(r.cfg.SnapshotPath),
		},
	}
}

func exists(path string) int {
	if _, err := os.Stat(path); err == nil {
		return 1
	}
	return 0
}

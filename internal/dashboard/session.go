// Package dashboard owns the loaded dataset and turns a filter selection
// into the ordered list of chart sections.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tradedash/internal/aggregate"
	"tradedash/internal/core"
	"tradedash/internal/dataset"
	"tradedash/internal/filter"
	applog "tradedash/internal/log"
)

// ErrUnknownSection is returned for a section name that does not exist.
var ErrUnknownSection = errors.New("unknown section")

// Snapshot is one loaded generation of the dataset. It is never mutated.
type Snapshot struct {
	Table    *core.Table
	Options  filter.Options
	Version  uint64
	Source   string
	LoadedAt time.Time
}

// Section is one computed chart.
type Section struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
	Data  any    `json:"data,omitempty"`
	Empty bool   `json:"empty"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the section could not be computed.
func (s Section) Failed() bool {
	return s.Err != nil
}

// Dashboard is the full set of sections for one selection.
type Dashboard struct {
	Version   uint64           `json:"version"`
	Selection filter.Selection `json:"selection"`
	Rows      int              `json:"rows"`
	Sections  []Section        `json:"sections"`
}

// Notifier is told about every successful reload.
type Notifier interface {
	DatasetReloaded(ctx context.Context, snap *Snapshot)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, snap *Snapshot)

func (f NotifierFunc) DatasetReloaded(ctx context.Context, snap *Snapshot) {
	f(ctx, snap)
}

// Options tune a Session.
type Options struct {
	TopN   int
	Logger *applog.Logger
	Now    func() time.Time
}

// Session holds the current dataset snapshot for the process.
// Readers never block: reloads swap the snapshot pointer.
type Session struct {
	source dataset.Source
	topN   int
	logger *applog.Logger
	events *applog.StructuredLogger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	reloads singleflight.Group

	mu        sync.RWMutex
	notifiers []Notifier
}

// NewSession loads source once. A load failure is returned as is
// (a *core.LoadError for every built-in source).
func NewSession(ctx context.Context, source dataset.Source, opts Options) (*Session, error) {
	if source == nil {
		return nil, errors.New("dashboard: nil dataset source")
	}
	if opts.TopN <= 0 {
		opts.TopN = aggregate.DefaultTopN
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		source: source,
		topN:   opts.TopN,
		logger: opts.Logger.WithComponent(applog.ComponentDashboard),
		events: applog.NewStructuredLogger(opts.Logger),
		now:    opts.Now,
	}

	snap, err := s.load(ctx, 1)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	s.events.LogDatasetLoaded(ctx, applog.OpLoad, snap.Source, snap.Version, snap.Table.Len())
	return s, nil
}

// Snapshot returns the active dataset generation.
func (s *Session) Snapshot() *Snapshot {
	return s.current.Load()
}

// TopN is the ranking limit used by bar sections.
func (s *Session) TopN() int {
	return s.topN
}

// Sections lists the section catalogue with this session's titles.
func (s *Session) Sections() []SectionInfo {
	return Sections(s.topN)
}

// DefaultSelection selects every category and shipping method.
func (s *Session) DefaultSelection() filter.Selection {
	return filter.All(s.Snapshot().Options)
}

// Subscribe registers n for reload notifications.
func (s *Session) Subscribe(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// Build filters the active table once and computes every section in order.
func (s *Session) Build(ctx context.Context, sel filter.Selection) Dashboard {
	return s.BuildAt(ctx, s.Snapshot(), sel)
}

// BuildAt is Build against a snapshot the caller already holds, so a
// selection parsed from snap.Options is applied to the same generation.
func (s *Session) BuildAt(ctx context.Context, snap *Snapshot, sel filter.Selection) Dashboard {
	view := filter.View(snap.Table, sel)
	s.logger.DebugContext(ctx, "Building dashboard", applog.NewFields().
		WithSelection(sel.Key()).
		WithDataset(snap.Source, snap.Version, view.Len()).
		ToSlice()...)

	d := Dashboard{
		Version:   snap.Version,
		Selection: sel,
		Rows:      view.Len(),
		Sections:  make([]Section, 0, len(sectionDefs)),
	}
	for _, def := range sectionDefs {
		d.Sections = append(d.Sections, s.run(ctx, def, view))
	}
	return d
}

// Section computes a single section for sel.
func (s *Session) Section(ctx context.Context, sel filter.Selection, name string) (Section, uint64, error) {
	snap := s.Snapshot()
	sec, err := s.SectionAt(ctx, snap, sel, name)
	return sec, snap.Version, err
}

// SectionAt computes a single section against snap.
func (s *Session) SectionAt(ctx context.Context, snap *Snapshot, sel filter.Selection, name string) (Section, error) {
	def, ok := lookupDef(name)
	if !ok {
		return Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, name)
	}
	return s.run(ctx, def, filter.View(snap.Table, sel)), nil
}

func (s *Session) run(ctx context.Context, def sectionDef, view *core.Table) (sec Section) {
	info := def.info(s.topN)
	sec = Section{Name: info.Name, Title: info.Title, Kind: info.Kind, Empty: view.Len() == 0}

	defer func() {
		if r := recover(); r != nil {
			sec.Data = nil
			sec.Err = fmt.Errorf("section %s panicked: %v", def.name, r)
			sec.Error = sec.Err.Error()
			s.events.LogSectionFailed(ctx, def.name, string(def.kind), sec.Err)
		}
	}()

	data, err := def.compute(view, s.topN)
	if err != nil {
		sec.Err = err
		sec.Error = err.Error()
		s.events.LogSectionFailed(ctx, def.name, string(def.kind), err)
		return sec
	}
	sec.Data = data
	return sec
}

// Reload re-reads the source. Concurrent calls share one load. On failure
// the previous snapshot stays active and the error is returned.
func (s *Session) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, shared := s.reloads.Do("reload", func() (interface{}, error) {
		prev := s.Snapshot()
		snap, err := s.load(ctx, prev.Version+1)
		if err != nil {
			s.logger.ErrorContext(ctx, "Dataset reload failed, keeping previous version",
				applog.FieldDatasetVersion, prev.Version,
				applog.FieldError, err)
			return nil, err
		}
		s.current.Store(snap)
		s.events.LogDatasetLoaded(ctx, applog.OpReload, snap.Source, snap.Version, snap.Table.Len())
		s.notify(ctx, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Reload coalesced with a concurrent call")
	}
	return v.(*Snapshot), nil
}

func (s *Session) load(ctx context.Context, version uint64) (*Snapshot, error) {
	table, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	for col, issue := range table.Issues() {
		s.logger.WarnContext(ctx, "Numeric column has non-numeric cells",
			"column", col,
			"row", issue.Row,
			"value", issue.Value)
	}
	return &Snapshot{
		Table:    table,
		Options:  filter.OptionsFrom(table),
		Version:  version,
		Source:   s.source.Name(),
		LoadedAt: s.now(),
	}, nil
}

func (s *Session) notify(ctx context.Context, snap *Snapshot) {
	s.mu.RLock()
	notifiers := append([]Notifier(nil), s.notifiers...)
	s.mu.RUnlock()

	for _, n := range notifiers {
		n.DatasetReloaded(ctx, snap)
	}
}

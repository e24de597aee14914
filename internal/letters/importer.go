package letters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"auditimport/internal/logging"
	"auditimport/internal/services"
)

// RecordStore is the content store holding records and their audit letters.
type RecordStore interface {
	ListRecords(ctx context.Context, query RecordQuery) ([]Record, error)
	AuditEntries(ctx context.Context, handle, field string) ([]Entry, error)
	SetAuditEntries(ctx context.Context, handle, field string, entries []Entry) error
}

// MediaImporter registers a file as a managed asset and returns its handle.
type MediaImporter interface {
	Import(ctx context.Context, path string) (string, error)
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithClock overrides the time source used for default year labels.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithQuery sets the record query used to build the identifier index.
func WithQuery(query RecordQuery) Option {
	return func(i *Importer) {
		i.query = query
	}
}

// WithField sets the record field that receives audit entries.
func WithField(field string) Option {
	return func(i *Importer) {
		if strings.TrimSpace(field) != "" {
			i.field = field
		}
	}
}

// WithDuplicatePolicy sets how identifier collisions are resolved.
func WithDuplicatePolicy(policy DuplicatePolicy) Option {
	return func(i *Importer) {
		if policy != "" {
			i.policy = policy
		}
	}
}

// Importer drives import runs. It is safe for concurrent use; updates to the
// same record are serialized across runs sharing an Importer.
type Importer struct {
	records RecordStore
	media   MediaImporter
	logger  *slog.Logger
	now     func() time.Time
	query   RecordQuery
	field   string
	policy  DuplicatePolicy
	locks   *recordLocks
}

// NewImporter constructs an Importer over the given collaborators.
func NewImporter(records RecordStore, media MediaImporter, opts ...Option) (*Importer, error) {
	if records == nil || media == nil {
		return nil, errors.New("importer requires a record store and a media importer")
	}
	imp := &Importer{
		records: records,
		media:   media,
		logger:  logging.NewNop(),
		now:     time.Now,
		field:   "audit_letters",
		policy:  DuplicateLast,
		locks:   newRecordLocks(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	imp.logger = logging.NewComponentLogger(imp.logger, "importer")
	return imp, nil
}

// Request describes one import run.
type Request struct {
	Dir    string
	Year   string
	DryRun bool
	// Files restricts the run to these names within Dir. Empty means every
	// candidate.
	Files []string
}

// LoadIndex fetches records and builds the identifier index.
func (i *Importer) LoadIndex(ctx context.Context) (*Index, error) {
	records, err := i.records.ListRecords(ctx, i.query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return BuildIndex(records, i.policy)
}

// Run processes every candidate in req.Dir. The returned error is non-nil
// only when the run could not start (unreadable directory, record listing
// failure, duplicate identifiers under the error policy, cancelled context);
// per-file failures are reported in the Report.
func (i *Importer) Run(ctx context.Context, req Request) (*Report, error) {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, i.logger)

	report := &Report{
		RunID:  runID,
		Dir:    req.Dir,
		Year:   ResolveYearLabel(req.Year, i.now()),
		DryRun: req.DryRun,
	}

	files, err := ListCandidates(req.Dir)
	if err != nil {
		return nil, err
	}
	if len(req.Files) > 0 {
		files = restrictTo(files, req.Files)
	}

	index, err := i.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	report.Records = index.Len()
	report.Duplicates = index.Duplicates()
	for _, dup := range report.Duplicates {
		logging.WarnWithContext(logger, "duplicate identifier in records", "duplicate_identifier",
			logging.String("identifier", dup.Identifier),
			logging.String("kept", dup.Kept),
			logging.String("dropped", dup.Dropped),
			logging.String(logging.FieldErrorHint, "give each record a unique identifier"),
			logging.String(logging.FieldImpact, "letters for this identifier go to the kept record only"),
		)
	}

	logger.Info("import run started",
		logging.String("dir", req.Dir),
		logging.String("year", report.Year),
		logging.Int("candidates", len(files)),
		logging.Int("records", report.Records),
		logging.Bool("dry_run", req.DryRun),
	)

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := i.processFile(services.WithFile(ctx, name), index, req, report.Year, name)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.Info("import run finished", logging.Int("files", len(report.Outcomes)))
	return report, nil
}

func restrictTo(files, names []string) []string {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[filepath.Base(name)] = struct{}{}
	}
	out := files[:0:0]
	for _, name := range files {
		if _, ok := wanted[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (i *Importer) processFile(ctx context.Context, index *Index, req Request, year, name string) Outcome {
	outcome := Outcome{File: name, Status: StatusSkipped}

	identifier, handle, err := index.Match(name)
	outcome.Identifier = identifier
	outcome.Record = handle
	if err != nil {
		outcome.Err = err
		i.logSkip(services.WithStage(ctx, "match"), outcome)
		return outcome
	}

	if req.DryRun {
		outcome.Status = StatusPlanned
		logging.WithContext(ctx, i.logger).Info("file matched", logging.String(logging.FieldRecord, handle))
		return outcome
	}

	path := filepath.Join(req.Dir, name)
	asset, err := i.media.Import(services.WithStage(ctx, "import"), path)
	if err == nil && strings.TrimSpace(asset) == "" {
		err = errors.New("importer returned an empty asset handle")
	}
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %w", ErrImportFailed, err)
		i.logSkip(services.WithStage(ctx, "import"), outcome)
		return outcome
	}
	outcome.Asset = strings.TrimSpace(asset)

	entry := Entry{Asset: outcome.Asset, Title: "", Year: year}
	if err := i.appendEntry(services.WithStage(ctx, "update"), handle, entry); err != nil {
		outcome.Err = fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		i.logSkip(services.WithStage(ctx, "update"), outcome)
		return outcome
	}

	outcome.Status = StatusImported
	logging.WithContext(ctx, i.logger).Info("file imported",
		logging.String(logging.FieldRecord, handle),
		logging.String(logging.FieldAsset, outcome.Asset),
	)
	return outcome
}

// appendEntry prepends entry to the record's list and writes the full list back.
func (i *Importer) appendEntry(ctx context.Context, handle string, entry Entry) error {
	unlock := i.locks.lock(handle)
	defer unlock()

	existing, err := i.records.AuditEntries(ctx, handle, i.field)
	if err != nil {
		return fmt.Errorf("read %s: %w", i.field, err)
	}
	if err := i.records.SetAuditEntries(ctx, handle, i.field, Prepend(existing, entry)); err != nil {
		return fmt.Errorf("write %s: %w", i.field, err)
	}
	return nil
}

func (i *Importer) logSkip(ctx context.Context, outcome Outcome) {
	logging.WarnWithContext(logging.WithContext(ctx, i.logger), "file skipped", "file_skipped",
		logging.String(logging.FieldRecord, outcome.Record),
		logging.String(logging.FieldErrorKind, errorKind(outcome.Err)),
		logging.Error(outcome.Err),
		logging.String(logging.FieldErrorHint, skipHint(outcome.Err)),
		logging.String(logging.FieldImpact, "file was not attached to any record"),
	)
}

func skipHint(err error) string {
	switch {
	case errors.Is(err, ErrNoIdentifier):
		return "rename the file to <identifier>_<label>.pdf"
	case errors.Is(err, ErrRecordNotFound):
		return "check the identifier against the record store"
	case errors.Is(err, ErrImportFailed):
		return "check file permissions and the media importer output"
	default:
		return "check the record store logs"
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNoIdentifier):
		return "no_identifier"
	case errors.Is(err, ErrRecordNotFound):
		return "record_not_found"
	case errors.Is(err, ErrImportFailed):
		return "import_failed/" + services.Kind(err)
	case errors.Is(err, ErrUpdateFailed):
		return "update_failed/" + services.Kind(err)
	default:
		return services.Kind(err)
	}
}

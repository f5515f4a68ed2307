package resultstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// Badger stores stage outputs as JSON under run/<run id>/<stage>.
type Badger struct {
	db *badger.DB
}

// BadgerConfig configures OpenBadger. Path is ignored when InMemory is set.
type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// OpenBadger opens a Badger database. The caller must Close the store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open badger database")
	}

	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	return errors.Wrap(b.db.Close(), "unable to close badger database")
}

func runPrefix(runID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("run/%s/", runID))
}

func outputKey(runID uuid.UUID, stage model.Stage) []byte {
	return append(runPrefix(runID), string(stage)...)
}

func (b *Badger) Save(ctx context.Context, runID uuid.UUID, stage model.Stage, output map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(output)
	if err != nil {
		return errors.Wrapf(err, "unable to encode output of stage %s", stage)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outputKey(runID, stage), value)
	})
	if err != nil {
		return errors.Wrapf(err, "unable to save output of stage %s", stage)
	}

	return nil
}

func (b *Badger) Load(ctx context.Context, runID uuid.UUID, stage model.Stage) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var output map[string]any

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(outputKey(runID, stage))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &output)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to load output of stage %s", stage)
	}

	return output, true, nil
}

// Stages returns the stages with a stored output for runID, sorted by name.
func (b *Badger) Stages(ctx context.Context, runID uuid.UUID) ([]model.Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := runPrefix(runID)
	res := []model.Stage{}

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			res = append(res, model.Stage(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)))
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to list stages")
	}

	sortStages(res)

	return res, nil
}

// Delete drops every output of runID.
func (b *Badger) Delete(ctx context.Context, runID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.DropPrefix(runPrefix(runID))
	if err != nil {
		return errors.Wrapf(err, "unable to delete run %s", runID)
	}

	return nil
}

func sortStages(stages []model.Stage) {
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
}

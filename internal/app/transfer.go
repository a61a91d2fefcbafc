package app

import (
	"context"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/logging"
)

// LockFileName is the advisory lock held in a target root during a batch.
const LockFileName = ".dwarfcopy.lock"

// TransferRequest asks for one session to be materialized under a target.
type TransferRequest struct {
	Session     domain.SessionDirectory
	Source      domain.SourceLocation
	Target      domain.TargetLocation
	Format      domain.FormatDefinition
	Calibration domain.Calibration
}

type TransferResult struct {
	Session     string
	Destination string
	Links       int
	Copies      int
	Bytes       int64
	Warnings    []string
	Err         error
}

// Transferrer moves sessions into place. A destination becomes visible only
// once all of its files are written.
type Transferrer struct {
	FS         FileSystem
	Workers    int
	LinkType   LinkType
	Logger     logging.Logger
	OnProgress func(domain.Progress)
	// OnPlanned, when set, is told how many commands a session needs
	// before the first one runs.
	OnPlanned func(session string, commands int)
	// OnResult receives each RunBatch result as soon as it is known.
	OnResult func(TransferResult)
}

// RunTransfer builds the session's layout in a hidden sibling of the
// destination and renames it into place when every command succeeded. On
// failure the working directory is removed and the destination is untouched.
func (t *Transferrer) RunTransfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if t.FS == nil {
		return TransferResult{}, errors.New("transferrer requires FS")
	}

	dest := domain.NewDestinationDirectory(req.Session, req.Target, req.Format).Path()
	result := TransferResult{Session: req.Session.Name(), Destination: dest}
	log := t.Logger.With("session", req.Session.Name())

	stop := log.Measure("Transfer to " + dest)
	defer stop()

	parent := domain.ParentOf(dest)
	if err := t.FS.MkdirAll(parent, 0o755); err != nil {
		return result, appErrors.Wrap(appErrors.TransferFailure, "create parent", parent, err)
	}
	exists, err := t.FS.Exists(dest)
	if err != nil {
		return result, appErrors.Wrap(appErrors.TransferFailure, "check destination", dest, err)
	}
	if exists {
		return result, appErrors.Wrap(appErrors.TransferFailure, "check destination", dest, errors.New("destination already exists"))
	}

	working := filepath.Join(parent, "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	if err := t.FS.Mkdir(working, 0o755); err != nil {
		return result, appErrors.Wrap(appErrors.TransferFailure, "create working directory", working, err)
	}

	if err := t.fill(ctx, req, working, &result); err != nil {
		if rmErr := t.FS.RemoveAll(working); rmErr != nil {
			log.Warnf("Could not remove %s: %v", working, rmErr)
		}
		return result, appErrors.Wrap(appErrors.TransferFailure, "transfer", dest, err)
	}

	log.Verbosef("Renaming %s to %s", filepath.Base(working), dest)
	if err := t.FS.Rename(working, dest); err != nil {
		if rmErr := t.FS.RemoveAll(working); rmErr != nil {
			log.Warnf("Could not remove %s: %v", working, rmErr)
		}
		return result, appErrors.Wrap(appErrors.TransferFailure, "rename", dest, err)
	}
	return result, nil
}

func (t *Transferrer) fill(ctx context.Context, req TransferRequest, working string, result *TransferResult) error {
	planner := Planner{FS: t.FS, Logger: t.Logger}
	plan, err := planner.Plan(ctx, req.Format, req.Session, working)
	if err != nil {
		return err
	}
	if err := planner.PlanCalibration(ctx, &plan, req.Format, req.Session, working, req.Calibration); err != nil {
		return err
	}
	result.Warnings = plan.Warnings
	for _, w := range plan.Warnings {
		t.Logger.Warnf("%s: %s", req.Session.Name(), w)
	}

	for _, dir := range plan.Mkdirs {
		if err := t.FS.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("creating %s: %w", dir, err)
		}
	}

	link := req.Source.Link && req.Target.Link
	var cmds []domain.TransferCommand
	for _, src := range domain.SortedSources(plan.Links) {
		dst := filepath.Join(working, plan.Links[src])
		if link {
			cmds = append(cmds, domain.LinkCommand(src, dst, req.Session.Path, working))
			result.Links++
		} else {
			cmds = append(cmds, domain.CopyCommand(src, dst, req.Session.Path, working))
			result.Copies++
		}
	}
	for _, src := range domain.SortedSources(plan.Copies) {
		cmds = append(cmds, domain.CopyCommand(src, filepath.Join(working, plan.Copies[src]), req.Session.Path, working))
		result.Copies++
	}

	if t.OnPlanned != nil {
		t.OnPlanned(req.Session.Name(), len(cmds))
	}
	pool := NewPool(ctx, t.Workers, &Executor{FS: t.FS, LinkType: t.LinkType}, t.Logger, t.OnProgress)
	var enqueueErr error
	for _, cmd := range cmds {
		if enqueueErr = pool.Enqueue(cmd); enqueueErr != nil {
			break
		}
	}
	drainErr := pool.Drain()
	result.Bytes = pool.Bytes()

	if enqueueErr != nil && !errors.Is(enqueueErr, ErrPoolStopped) {
		return enqueueErr
	}
	return drainErr
}

// RunBatch transfers sessions one after another. Each target root touched
// is locked for the duration of its transfers. A failed session is recorded
// in its result and the batch moves on; only cancellation stops it early.
func (t *Transferrer) RunBatch(ctx context.Context, reqs []TransferRequest) ([]TransferResult, error) {
	locks := map[string]*flock.Flock{}
	defer func() {
		for path, lock := range locks {
			if err := lock.Unlock(); err != nil {
				t.Logger.Warnf("Could not release %s: %v", path, err)
			}
		}
	}()

	results := make([]TransferResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if _, held := locks[req.Target.Path]; !held {
			lock, err := t.lockTarget(req.Target.Path)
			if err != nil {
				t.record(&results, TransferResult{Session: req.Session.Name(), Err: err})
				continue
			}
			locks[req.Target.Path] = lock
		}

		result, err := t.RunTransfer(ctx, req)
		result.Err = err
		if err != nil {
			t.Logger.Errorf("%s: %v", req.Session.Name(), err)
		} else {
			t.Logger.Infof("%s -> %s", req.Session.Name(), result.Destination)
		}
		t.record(&results, result)
	}
	return results, ctx.Err()
}

func (t *Transferrer) record(results *[]TransferResult, r TransferResult) {
	*results = append(*results, r)
	if t.OnResult != nil {
		t.OnResult(r)
	}
}

func (t *Transferrer) lockTarget(root string) (*flock.Flock, error) {
	if err := t.FS.MkdirAll(root, 0o755); err != nil {
		return nil, appErrors.Wrap(appErrors.TransferFailure, "create target", root, err)
	}
	path := filepath.Join(root, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.TransferFailure, "lock target", path, err)
	}
	if !ok {
		return nil, appErrors.Wrap(appErrors.TransferFailure, "lock target", path, errors.New("target is in use by another process"))
	}
	return lock, nil
}

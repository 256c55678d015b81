package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/engine"
	"github.com/donno/cake/internal/engine/task"
)

// FileSysTool implements copy steps. A copy is skipped when the recorded
// dependency state shows the target already reflects the source.
type FileSysTool struct{}

// NewFileSysTool creates the file system tool.
func NewFileSysTool() *FileSysTool {
	return &FileSysTool{}
}

// Clone implements domain.Tool. The tool carries no state, but cloning keeps
// the per-execution isolation contract uniform across tools.
func (t *FileSysTool) Clone() domain.Tool {
	return &FileSysTool{}
}

// RunStep schedules the copy as a task ordered after the producer of its
// source, if any.
func (t *FileSysTool) RunStep(ec *engine.ExecContext, step *domain.Step) (*task.Task, error) {
	if step.Source == "" || step.Target == "" {
		return nil, ec.Engine().BuildFailure("%s: copy step needs source and target", ec.Script().Path())
	}
	source := ec.AbsPath(step.Source)
	target := ec.AbsPath(step.Target)

	run := ec.NewTask(func() error {
		return t.copy(ec, source, target)
	})
	run.StartAfter(ec.ProducersFor([]string{source})...)
	run.Start()
	return run, nil
}

func (t *FileSysTool) copy(ec *engine.ExecContext, source, target string) error {
	e := ec.Engine()
	args := []string{"copy", source, target}

	info, reason, err := e.CheckDependencyInfo(target, args)
	if err != nil {
		return err
	}
	if reason == "" {
		info.PrimeFileDigestCache(e)
		vertex := e.Telemetry().Record("copy " + target)
		vertex.Cached()
		vertex.Complete(nil)
		return nil
	}
	e.Logger().OutputDebug("reason", fmt.Sprintf("Rebuilding '%s' because %s.", target, reason))

	e.Logger().OutputInfo(fmt.Sprintf("Copying %s to %s", source, target))
	vertex := e.Telemetry().Record("copy " + target)
	err = copyFile(source, target)
	vertex.Complete(err)
	if err != nil {
		return e.BuildFailure("failed to copy '%s' to '%s': %v", source, target, err)
	}
	e.NotifyFileChanged(target)

	info, err = e.NewDependencyInfo([]string{target}, args, []string{source}, true)
	if err != nil {
		return err
	}
	return e.StoreDependencyInfo(info)
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return zerr.Wrap(err, "failed to open source")
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return zerr.Wrap(err, "failed to create target directory")
	}
	out, err := os.Create(target)
	if err != nil {
		return zerr.Wrap(err, "failed to create target")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return zerr.Wrap(err, "failed to copy contents")
	}
	return out.Close()
}

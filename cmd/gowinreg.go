package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/C-Sto/gowinreg/pkg/asyncreg"
	"github.com/C-Sto/gowinreg/pkg/logger"
	"github.com/C-Sto/gowinreg/pkg/promise"
	"github.com/C-Sto/gowinreg/pkg/systemreader"
	"github.com/C-Sto/gowinreg/pkg/winreg"
	"github.com/C-Sto/gowinreg/pkg/winregistry"
	"github.com/google/uuid"
	eventloop "github.com/joeycumines/go-eventloop"
	"go.uber.org/zap"
)

type Settings struct {
	Host     string
	Hive     string
	Key      string
	Arch     string
	Op       string
	Name     string
	Type     string
	Value    string
	HiveFile string
	Mount    string
	JSON     bool
	Outfile  string
	Verbose  bool

	// Store replaces the platform registry when HiveFile is empty.
	Store winregistry.Store
}

// Ops lists the operations Run understands.
var Ops = []string{"values", "keys", "get", "set", "remove", "clear", "destroy", "create", "exists", "valueexists"}

var ErrUnknownOp = errors.New("unknown operation")

// Run performs one registry operation through the promise API and writes the result to w.
func Run(ctx context.Context, s Settings, w io.Writer) error {
	if s.Verbose {
		if err := logger.Development(); err != nil {
			return err
		}
	}
	runID := uuid.NewString()
	log := logger.Logger.With(zap.String("run", runID))

	op := strings.ToLower(s.Op)
	if !slices.Contains(Ops, op) {
		return fmt.Errorf("%w %q, want one of %s", ErrUnknownOp, s.Op, strings.Join(Ops, ", "))
	}
	if op == "set" {
		if s.Type == "" {
			s.Type = winreg.REG_SZ
		}
		s.Type = strings.ToUpper(s.Type)
		if !slices.Contains(asyncreg.REG_TYPES, s.Type) {
			return fmt.Errorf("%w: %q", winreg.ErrIllegalType, s.Type)
		}
	}

	store, err := openStore(s)
	if err != nil {
		return err
	}

	loop, err := eventloop.New()
	if err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("event loop stopped", zap.Error(err))
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	d, err := promise.New(loop)
	if err != nil {
		return err
	}
	reg, err := asyncreg.New(d, asyncreg.Options{Host: s.Host, Hive: strings.ToUpper(s.Hive), Key: s.Key, Arch: s.Arch, Store: store})
	if err != nil {
		return err
	}

	log.Debug("running operation", zap.String("op", op), zap.String("path", reg.Path()))
	res, err := do(ctx, reg, op, s)
	if err != nil {
		log.Debug("operation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	if s.JSON {
		return writeJSON(w, runID, op, reg, res)
	}
	return writeText(w, reg, res)
}

func openStore(s Settings) (winregistry.Store, error) {
	if s.HiveFile == "" {
		return s.Store, nil
	}
	mount := s.Mount
	if mount == "" {
		mount = s.Hive
		if mount == "" {
			mount = winreg.HKLM
		}
	}
	h, err := winregistry.OpenHive(s.HiveFile, mount)
	if err != nil {
		return nil, err
	}
	sys, err := systemreader.New(h, mount)
	if err != nil {
		// not a SYSTEM hive
		logger.Logger.Debug("no control set selection in hive", zap.String("file", s.HiveFile), zap.Error(err))
		return h, nil
	}
	return sys, nil
}

func await[T any](ctx context.Context, p *eventloop.ChainedPromise) (any, error) {
	return promise.Await[T](ctx, p)
}

// completed marks operations that only report success.
type completed struct{}

func do(ctx context.Context, reg *asyncreg.Registry, op string, s Settings) (any, error) {
	var p *eventloop.ChainedPromise
	switch op {
	case "values":
		return await[[]*asyncreg.RegistryItem](ctx, reg.Values())
	case "keys":
		return await[[]*winreg.Registry](ctx, reg.Keys())
	case "get":
		return await[*asyncreg.RegistryItem](ctx, reg.Get(s.Name))
	case "exists":
		return await[bool](ctx, reg.KeyExists())
	case "valueexists":
		return await[bool](ctx, reg.ValueExists(s.Name))
	case "set":
		p = reg.Set(s.Name, s.Type, s.Value)
	case "remove":
		p = reg.Remove(s.Name)
	case "clear":
		p = reg.Clear()
	case "destroy":
		p = reg.Destroy()
	case "create":
		p = reg.Create()
	}
	if _, err := promise.Await[struct{}](ctx, p); err != nil {
		return nil, err
	}
	return completed{}, nil
}

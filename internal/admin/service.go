package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkch/paybot/internal/stats"
	"github.com/mkch/paybot/internal/texts"
	"github.com/mkch/paybot/pkg/enums"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/mkch/paybot/pkg/metrics"
)

// Commands lists the admin-gated command names handled by Service.
var Commands = []string{
	"admin",
	"setprice",
	"autodelivery",
	"addadmin",
	"removeadmin",
	"listadmins",
	"stats",
	"codes",
}

// SettingsStore is the subset of the settings store the admin surface mutates.
type SettingsStore interface {
	IsAdmin(id int64) bool
	ListAdmins() []int64
	SetMinPrice(price int) error
	SetAutoDelivery(on bool) error
	AddAdmin(id int64) error
	// RemoveAdmin fails with CodeConflict instead of emptying the admin set.
	RemoveAdmin(id int64) error
}

// CodeCounter reports the remaining inventory size.
type CodeCounter interface {
	Count() (int, error)
}

// Request is one admin command invocation.
type Request struct {
	UserID  int64
	Command string
	Args    []string
}

type ServiceParams struct {
	Settings  SettingsStore
	Stats     stats.Aggregator
	Inventory CodeCounter
	Logger    *logger.Logger
	Metrics   *metrics.BotMetrics
}

type Service struct {
	settings  SettingsStore
	stats     stats.Aggregator
	inventory CodeCounter
	logg      *logger.Logger
	metrics   *metrics.BotMetrics
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Settings == nil:
		return nil, fmt.Errorf("settings store required")
	case p.Stats == nil:
		return nil, fmt.Errorf("stats aggregator required")
	case p.Inventory == nil:
		return nil, fmt.Errorf("inventory required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		settings:  p.Settings,
		stats:     p.Stats,
		inventory: p.Inventory,
		logg:      p.Logger,
		metrics:   p.Metrics,
	}, nil
}

// Handles reports whether command belongs to the admin surface.
func Handles(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}

// Handle authorizes and executes req and returns the reply text. The returned
// error is informational; the reply is always safe to send.
func (s *Service) Handle(ctx context.Context, req Request) (string, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"admin_command": req.Command,
		"user_id":       req.UserID,
	})
	if !s.settings.IsAdmin(req.UserID) {
		s.logg.Warn(ctx, "admin command rejected for non-admin")
		return texts.AdminOnly, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin only")
	}

	switch req.Command {
	case "admin":
		return texts.AdminHelp, nil
	case "setprice":
		return s.setPrice(ctx, req.Args)
	case "autodelivery":
		return s.autoDelivery(ctx, req.Args)
	case "addadmin":
		return s.addAdmin(ctx, req.Args)
	case "removeadmin":
		return s.removeAdmin(ctx, req.Args)
	case "listadmins":
		return s.listAdmins(), nil
	case "stats":
		return s.totals(ctx)
	case "codes":
		return s.codes(ctx)
	default:
		return texts.InvalidCommand, pkgerrors.New(pkgerrors.CodeValidation, "unknown admin command")
	}
}

func (s *Service) setPrice(ctx context.Context, args []string) (string, error) {
	price, err := intArg(args)
	if err != nil {
		return texts.InvalidCommand, err
	}
	if err := s.settings.SetMinPrice(int(price)); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return texts.MinPriceError, err
		}
		return s.persistFailed(ctx, err)
	}
	s.logg.Info(s.logg.WithField(ctx, "min_price", price), "minimum price updated")
	return texts.PriceUpdated(int(price)), nil
}

func (s *Service) autoDelivery(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return texts.InvalidCommand, pkgerrors.New(pkgerrors.CodeValidation, "missing argument")
	}
	toggle, err := enums.ParseToggle(args[0])
	if err != nil {
		return texts.InvalidCommand, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse toggle")
	}
	if err := s.settings.SetAutoDelivery(toggle.Bool()); err != nil {
		return s.persistFailed(ctx, err)
	}
	s.logg.Info(s.logg.WithField(ctx, "auto_delivery", toggle.Bool()), "auto-delivery updated")
	return texts.DeliveryStatus(toggle.Bool()), nil
}

func (s *Service) addAdmin(ctx context.Context, args []string) (string, error) {
	id, err := intArg(args)
	if err != nil {
		return texts.InvalidCommand, err
	}
	if err := s.settings.AddAdmin(id); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists) {
			return texts.AdminExists, err
		}
		return s.persistFailed(ctx, err)
	}
	s.logg.Info(s.logg.WithField(ctx, "target_admin", id), "admin added")
	return texts.AdminAdded(id), nil
}

func (s *Service) removeAdmin(ctx context.Context, args []string) (string, error) {
	id, err := intArg(args)
	if err != nil {
		return texts.InvalidCommand, err
	}
	if err := s.settings.RemoveAdmin(id); err != nil {
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return texts.AdminNotFound, err
		case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			return texts.LastAdmin, err
		}
		return s.persistFailed(ctx, err)
	}
	s.logg.Info(s.logg.WithField(ctx, "target_admin", id), "admin removed")
	return texts.AdminRemoved(id), nil
}

func (s *Service) listAdmins() string {
	admins := s.settings.ListAdmins()
	if len(admins) == 0 {
		return texts.NoAdmins
	}
	return texts.AdminList(admins)
}

func (s *Service) totals(ctx context.Context) (string, error) {
	totals, err := s.stats.Totals(ctx)
	if err != nil {
		s.logg.Error(ctx, "failed to read stats", err)
		return texts.RequestFailed, err
	}
	return texts.Stats(totals.Purchases, totals.UniqueBuyers), nil
}

func (s *Service) codes(ctx context.Context) (string, error) {
	n, err := s.inventory.Count()
	if err != nil {
		s.logg.Error(ctx, "failed to count codes", err)
		return texts.RequestFailed, err
	}
	s.metrics.SetCodesRemaining(n)
	return texts.CodesLeft(n), nil
}

func (s *Service) persistFailed(ctx context.Context, err error) (string, error) {
	s.logg.Error(ctx, "failed to persist settings", err)
	return texts.SettingsFailed, err
}

func intArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "missing argument")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "argument must be an integer")
	}
	return v, nil
}

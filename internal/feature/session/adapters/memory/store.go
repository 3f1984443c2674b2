// Package memory はセッションをプロセス内に保持するストアを提供します。
package memory

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"ecosort_backend/internal/feature/session/usecase"
)

// DefaultIdleTTL は操作のないセッションを破棄するまでの時間のデフォルト値です。
const DefaultIdleTTL = 15 * time.Minute

// Factory は指定されたIDのControllerを生成します。
type Factory func(id string) *usecase.Controller

type entry struct {
	ctrl     *usecase.Controller
	lastSeen time.Time
}

// Store はセッションIDからControllerへの対応を保持します。
type Store struct {
	newController Factory
	ttl           time.Duration
	clock         clock.Clock

	mu       sync.Mutex
	sessions map[string]*entry

	scheduler gocron.Scheduler
}

// NewStore はStoreの新しいインスタンスを生成します。
// ttlが0以下の場合はDefaultIdleTTL、clkがnilの場合は実時間を使います。
func NewStore(factory Factory, ttl time.Duration, clk clock.Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		newController: factory,
		ttl:           ttl,
		clock:         clk,
		sessions:      make(map[string]*entry),
	}
}

// Create は新しいセッションを作成します。
func (s *Store) Create() *usecase.Controller {
	id := uuid.NewString()
	ctrl := s.newController(id)

	s.mu.Lock()
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: s.clock.Now()}
	s.mu.Unlock()

	slog.Info("session created", "session", id)
	return ctrl
}

// Get はセッションを返し、最終アクセス時刻を更新します。
func (s *Store) Get(id string) (*usecase.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	e.lastSeen = s.clock.Now()
	return e.ctrl, nil
}

// Delete はセッションを閉じて削除します。
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return usecase.ErrNotFound
	}
	if err := e.ctrl.Close(); err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}
	slog.Info("session deleted", "session", id)
	return nil
}

// Len は保持しているセッション数を返します。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle はTTLを超えて操作のないセッションを閉じて削除し、その数を返します。
// ライブ表示中・分類中のセッションは対象外です。
func (s *Store) EvictIdle() int {
	now := s.clock.Now()

	s.mu.Lock()
	var idle []*entry
	for id, e := range s.sessions {
		st := e.ctrl.Snapshot()
		if st.Live || st.Processing {
			continue
		}
		last := e.lastSeen
		if st.UpdatedAt.After(last) {
			last = st.UpdatedAt
		}
		if now.Sub(last) >= s.ttl {
			idle = append(idle, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range idle {
		if err := e.ctrl.Close(); err != nil {
			slog.Warn("failed to close idle session", "session", e.ctrl.ID(), "error", err)
		}
	}
	if len(idle) > 0 {
		slog.Info("evicted idle sessions", "count", len(idle), "remaining", s.Len())
	}
	return len(idle)
}

// StartJanitor はEvictIdleを一定間隔で実行するジョブを開始します。
func (s *Store) StartJanitor(interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.EvictIdle() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return multierr.Append(fmt.Errorf("failed to schedule janitor: %w", err), scheduler.Shutdown())
	}
	scheduler.Start()

	s.mu.Lock()
	s.scheduler = scheduler
	s.mu.Unlock()
	return nil
}

// Close はジャニターを停止し、すべてのセッションを閉じます。
func (s *Store) Close() error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	var err error
	if scheduler != nil {
		err = multierr.Append(err, scheduler.Shutdown())
	}
	for _, e := range sessions {
		err = multierr.Append(err, e.ctrl.Close())
	}
	return err
}

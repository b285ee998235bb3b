package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/captain-draft/internal/dependencies/mocks"
	"github.com/mcoot/captain-draft/internal/metrics"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/secrets"
	"github.com/mcoot/captain-draft/internal/storage/memory"
	utils "github.com/mcoot/captain-draft/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	storage  *memory.Storage
	metrics  *metrics.Metrics
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New(s.clock, 0)
	s.metrics = metrics.NewNop()
	s.registry = NewRegistry(
		DefaultConfig(),
		s.clock,
		secrets.NewGenerator(mocks.NewMockRandom()),
		s.storage,
		s.metrics,
		utils.NopLogger(),
	)
	s.ctx = context.Background()
}

func (s *RegistrySuite) create(names ...string) *Session {
	sess, err := s.registry.Create(s.ctx, names)
	s.Require().NoError(err)
	return sess
}

func (s *RegistrySuite) captains(sess *Session) []model.Captain {
	var captains []model.Captain
	s.Require().NoError(sess.Exec(func(tx *Tx) error {
		captains = tx.Draft().Captains()
		return nil
	}))
	return captains
}

func (s *RegistrySuite) bind(sess *Session, role model.Role, conn Conn) {
	s.Require().NoError(sess.Exec(func(tx *Tx) error {
		tx.Bind(role, conn)
		return nil
	}))
}

func (s *RegistrySuite) unbind(sess *Session, role model.Role, conn Conn) bool {
	var changed bool
	s.Require().NoError(sess.Exec(func(tx *Tx) error {
		changed = tx.Unbind(role, conn)
		return nil
	}))
	return changed
}

// Create tests

func (s *RegistrySuite) TestCreateRequiresTwoCaptains() {
	_, err := s.registry.Create(s.ctx, []string{"Alice"})
	s.ErrorIs(err, model.ErrInsufficientCaptains)

	_, err = s.registry.Create(s.ctx, nil)
	s.ErrorIs(err, model.ErrInsufficientCaptains)
	s.Equal(0, s.registry.Count())
}

func (s *RegistrySuite) TestCreateRegistersSession() {
	sess := s.create("Alice", "Bob")

	got, err := s.registry.Get(sess.ID())
	s.Require().NoError(err)
	s.Same(sess, got)
	s.Equal(1, s.registry.Count())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ActiveSessions))
}

func (s *RegistrySuite) TestCreateFirstCaptainHoldsTurn() {
	sess := s.create("Alice", "Bob", "Carol")
	captains := s.captains(sess)

	s.Require().Len(captains, 3)
	s.Equal("Alice", captains[0].Name)
	s.Require().NoError(sess.Exec(func(tx *Tx) error {
		s.Equal(captains[0].ID, tx.Draft().Turn())
		return nil
	}))
}

func (s *RegistrySuite) TestCreateGeneratesDistinctSecrets() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)

	var spectator string
	_ = sess.Exec(func(tx *Tx) error {
		spectator = tx.SpectatorSecret()
		return nil
	})

	seen := map[string]bool{}
	for _, secret := range []string{sess.HostSecret(), spectator, captains[0].Secret, captains[1].Secret, string(sess.ID())} {
		s.NotEmpty(secret)
		s.False(seen[secret], "duplicate token %q", secret)
		seen[secret] = true
	}
}

func (s *RegistrySuite) TestGetUnknownSession() {
	_, err := s.registry.Get("missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *RegistrySuite) TestResolveRole() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)

	_ = sess.Exec(func(tx *Tx) error {
		role, err := tx.ResolveRole(sess.HostSecret())
		s.Require().NoError(err)
		s.Equal(model.HostRole(), role)

		role, err = tx.ResolveRole(captains[1].Secret)
		s.Require().NoError(err)
		s.Equal(model.CaptainRole(captains[1].ID), role)

		_, err = tx.ResolveRole("nope")
		s.ErrorIs(err, model.ErrSecretNotFound)
		return nil
	})
}

// Idle timer tests

func (s *RegistrySuite) TestIdleTimeoutWithoutHostTearsDown() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)
	captain := utils.NewFakeConn("captain")
	s.bind(sess, model.CaptainRole(captains[0].ID), captain)

	s.clock.Advance(59 * time.Second)
	_, err := s.registry.Get(sess.ID())
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	_, err = s.registry.Get(sess.ID())
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.True(captain.Closed())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Teardowns.WithLabelValues("idle")))

	result, err := s.storage.GetResult(s.ctx, sess.ID())
	s.Require().NoError(err)
	s.Equal(model.ReasonIdle, result.Reason)
}

func (s *RegistrySuite) TestHostBindCancelsIdleTimer() {
	sess := s.create("Alice", "Bob")
	s.bind(sess, model.HostRole(), utils.NewFakeConn("host"))

	s.clock.Advance(5 * time.Minute)

	_, err := s.registry.Get(sess.ID())
	s.NoError(err)
	s.Equal(0, s.clock.PendingTimers())
}

// Grace timer tests

func (s *RegistrySuite) TestHostDisconnectTearsDownAfterGrace() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)
	host := utils.NewFakeConn("host")
	captain := utils.NewFakeConn("captain")
	spectator := utils.NewFakeConn("spectator")
	s.bind(sess, model.HostRole(), host)
	s.bind(sess, model.CaptainRole(captains[1].ID), captain)
	s.bind(sess, model.SpectatorRole(), spectator)

	s.True(s.unbind(sess, model.HostRole(), host))

	s.clock.Advance(9 * time.Second)
	_, err := s.registry.Get(sess.ID())
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	_, err = s.registry.Get(sess.ID())
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.True(captain.Closed())
	s.True(spectator.Closed())

	result, err := s.storage.GetResult(s.ctx, sess.ID())
	s.Require().NoError(err)
	s.Equal(model.ReasonHostTimeout, result.Reason)
	s.True(secrets.VerifySecret(result.HostSecretHash, sess.HostSecret()))
}

// slowStorage delays archive writes so teardown's store write is observable
type slowStorage struct {
	*memory.Storage
	delay time.Duration
}

func (st *slowStorage) SaveResult(ctx context.Context, result *model.DraftResult) error {
	time.Sleep(st.delay)
	return st.Storage.SaveResult(ctx, result)
}

func (s *RegistrySuite) TestResultReadableOnceSessionIsGone() {
	store := &slowStorage{Storage: s.storage, delay: 100 * time.Millisecond}
	s.registry = NewRegistry(DefaultConfig(), s.clock, secrets.NewGenerator(mocks.NewMockRandom()), store, s.metrics, utils.NopLogger())

	sess := s.create("Alice", "Bob")
	host := utils.NewFakeConn("host")
	s.bind(sess, model.HostRole(), host)
	s.unbind(sess, model.HostRole(), host)

	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		s.clock.Advance(DefaultConfig().GracePeriod)
	}()

	s.Eventually(func() bool {
		_, err := s.registry.Get(sess.ID())
		return errors.Is(err, model.ErrSessionNotFound)
	}, 2*time.Second, time.Millisecond)

	result, err := s.storage.GetResult(s.ctx, sess.ID())
	s.Require().NoError(err)
	s.Equal(model.ReasonHostTimeout, result.Reason)
	s.True(secrets.VerifySecret(result.HostSecretHash, sess.HostSecret()))
	<-advanced
}

func (s *RegistrySuite) TestClosingSessionRejectsExecUntilRemoved() {
	store := &slowStorage{Storage: s.storage, delay: 100 * time.Millisecond}
	s.registry = NewRegistry(DefaultConfig(), s.clock, secrets.NewGenerator(mocks.NewMockRandom()), store, s.metrics, utils.NopLogger())
	sess := s.create("Alice", "Bob")

	tornDown := make(chan struct{})
	go func() {
		defer close(tornDown)
		_ = sess.Exec(func(tx *Tx) error {
			tx.Teardown(model.ReasonShutdown)
			return nil
		})
	}()

	s.Eventually(func() bool {
		return errors.Is(sess.Exec(func(*Tx) error { return nil }), model.ErrSessionClosing)
	}, 2*time.Second, time.Millisecond)
	<-tornDown

	_, err := s.registry.Get(sess.ID())
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.storage.GetResult(s.ctx, sess.ID())
	s.NoError(err)
}

func (s *RegistrySuite) TestExecReleasesLockWhenCallbackPanics() {
	sess := s.create("Alice", "Bob")

	s.Panics(func() {
		_ = sess.Exec(func(*Tx) error { panic("boom") })
	})

	s.NoError(sess.Exec(func(*Tx) error { return nil }))
}

func (s *RegistrySuite) TestHostReconnectCancelsGrace() {
	sess := s.create("Alice", "Bob")
	first := utils.NewFakeConn("host-1")
	s.bind(sess, model.HostRole(), first)
	s.unbind(sess, model.HostRole(), first)

	s.clock.Advance(5 * time.Second)
	s.bind(sess, model.HostRole(), utils.NewFakeConn("host-2"))
	s.clock.Advance(time.Minute)

	_, err := s.registry.Get(sess.ID())
	s.NoError(err)
}

func (s *RegistrySuite) TestRearmingReplacesPendingTimer() {
	sess := s.create("Alice", "Bob")
	host := utils.NewFakeConn("host")
	s.bind(sess, model.HostRole(), host)
	s.unbind(sess, model.HostRole(), host)

	var before uint64
	_ = sess.Exec(func(tx *Tx) error {
		before = sess.timerGen
		sess.armGraceLocked()
		s.NotEqual(before, sess.timerGen)
		return nil
	})
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(10 * time.Second)
	_, err := s.registry.Get(sess.ID())
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Teardowns.WithLabelValues("host_timeout")))
}

func (s *RegistrySuite) TestTimerFromOlderGenerationIsIgnored() {
	sess := s.create("Alice", "Bob")

	var stale uint64
	_ = sess.Exec(func(tx *Tx) error {
		stale = sess.timerGen
		sess.cancelTimerLocked()
		return nil
	})

	fired := false
	sess.fireTimer(stale, func(tx *Tx) { fired = true })
	s.False(fired)

	var current uint64
	_ = sess.Exec(func(tx *Tx) error {
		current = sess.timerGen
		return nil
	})
	sess.fireTimer(current, func(tx *Tx) { fired = true })
	s.True(fired)
}

// Binding tests

func (s *RegistrySuite) TestCaptainTakeover() {
	sess := s.create("Alice", "Bob")
	role := model.CaptainRole(s.captains(sess)[0].ID)
	first := utils.NewFakeConn("first")
	second := utils.NewFakeConn("second")

	s.bind(sess, role, first)
	s.bind(sess, role, second)

	s.True(first.Closed())
	s.False(second.Closed())
	s.False(s.unbind(sess, role, first))

	_ = sess.Exec(func(tx *Tx) error {
		s.True(tx.Connectivity().Captains[role.CaptainID])
		return nil
	})
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ActiveConnections.WithLabelValues("captain")))
}

func (s *RegistrySuite) TestHostTakeoverDoesNotArmGrace() {
	sess := s.create("Alice", "Bob")
	first := utils.NewFakeConn("first")
	second := utils.NewFakeConn("second")
	s.bind(sess, model.HostRole(), first)
	s.bind(sess, model.HostRole(), second)

	s.False(s.unbind(sess, model.HostRole(), first))
	s.clock.Advance(time.Minute)

	_, err := s.registry.Get(sess.ID())
	s.NoError(err)
}

func (s *RegistrySuite) TestSpectatorsAccumulate() {
	sess := s.create("Alice", "Bob")
	a := utils.NewFakeConn("a")
	b := utils.NewFakeConn("b")
	s.bind(sess, model.SpectatorRole(), a)
	s.bind(sess, model.SpectatorRole(), b)

	_ = sess.Exec(func(tx *Tx) error {
		c := tx.Connectivity()
		s.Equal(2, c.Spectators)
		s.False(c.Host)
		s.Len(c.Captains, 2)
		return nil
	})

	s.True(s.unbind(sess, model.SpectatorRole(), a))
	s.False(a.Closed())
}

// Fan-out tests

func (s *RegistrySuite) TestBroadcastReachesEveryBoundConnection() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)
	conns := []*utils.FakeConn{
		utils.NewFakeConn("host"),
		utils.NewFakeConn("alice"),
		utils.NewFakeConn("spectator"),
	}
	s.bind(sess, model.HostRole(), conns[0])
	s.bind(sess, model.CaptainRole(captains[0].ID), conns[1])
	s.bind(sess, model.SpectatorRole(), conns[2])

	_ = sess.Exec(func(tx *Tx) error {
		tx.Broadcast(model.NewMessage(model.EventPicking, tx.Draft().Turn()))
		return nil
	})

	for _, conn := range conns {
		s.Equal([]string{model.EventPicking}, conn.Events())
	}
}

func (s *RegistrySuite) TestSlowConnectionIsDroppedAlone() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)
	host := utils.NewFakeConn("host")
	slow := utils.NewFakeConn("slow")
	slow.SetFull(true)
	s.bind(sess, model.HostRole(), host)
	s.bind(sess, model.CaptainRole(captains[0].ID), slow)

	_ = sess.Exec(func(tx *Tx) error {
		tx.Broadcast(model.NewMessage(model.EventNewList, tx.Draft().Entries()))
		return nil
	})

	s.True(slow.Closed())
	s.False(host.Closed())
	s.Equal(1, host.Count())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.DroppedMessages))
}

func (s *RegistrySuite) TestSendToCaptain() {
	sess := s.create("Alice", "Bob")
	captains := s.captains(sess)
	alice := utils.NewFakeConn("alice")
	s.bind(sess, model.CaptainRole(captains[0].ID), alice)

	_ = sess.Exec(func(tx *Tx) error {
		s.True(tx.SendToCaptain(captains[0].ID, model.NewMessage(model.EventPing, captains[0].ID)))
		s.False(tx.SendToCaptain(captains[1].ID, model.NewMessage(model.EventPing, captains[1].ID)))
		return nil
	})
	s.Equal([]string{model.EventPing}, alice.Events())
}

// Teardown tests

func (s *RegistrySuite) TestExecAfterTeardownFails() {
	sess := s.create("Alice", "Bob")
	host := utils.NewFakeConn("host")
	s.bind(sess, model.HostRole(), host)

	s.Require().NoError(sess.Exec(func(tx *Tx) error {
		tx.Teardown(model.ReasonInternalError)
		return nil
	}))

	s.True(host.Closed())
	err := sess.Exec(func(tx *Tx) error { return nil })
	s.ErrorIs(err, model.ErrSessionClosing)
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.ActiveConnections.WithLabelValues("host")))
}

func (s *RegistrySuite) TestShutdownTearsDownAll() {
	s.create("Alice", "Bob")
	s.create("Carol", "Dave")

	s.Require().NoError(s.registry.Shutdown(s.ctx))

	s.Equal(0, s.registry.Count())
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Teardowns.WithLabelValues("shutdown")))
	s.Equal(0, s.clock.PendingTimers())
}

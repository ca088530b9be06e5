// Package slave implements the slave-side registration loop: a
// persistent state machine {idle, resolving, registering, applying,
// sleeping} generalized from the teacher's cmd/node/main.go register()
// retry-with-backoff function into spec.md §4.4.2's full loop.
package slave

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/execrunner"
	"github.com/snokvist/autod-sub000/internal/httpx"
	"github.com/snokvist/autod-sub000/internal/scanner"
	"github.com/snokvist/autod-sub000/internal/syncproto"
)

// State names the slave loop's current phase.
type State string

const (
	StateIdle        State = "idle"
	StateResolving   State = "resolving"
	StateRegistering State = "registering"
	StateApplying    State = "applying"
	StateSleeping    State = "sleeping"
)

// Loop drives one slave's registration/apply cycle against a master.
// Its own state is guarded by its own mutex, distinct from the
// config store's and the scanner registry's locks, per spec.md §5.
type Loop struct {
	log      *logrus.Entry
	cfg      *config.Store
	nodes    *scanner.Registry
	scanner  *scanner.Scanner // may be nil when scanning is disabled
	client   *httpx.Client
	selfPort int // this daemon's own listen port, announced as the register request's "address"

	mu                    sync.Mutex
	state                 State
	stopped               bool
	running               bool
	appliedGeneration     uint32
	lastReceivedGeneration uint32
	slot                  int
	slotLabel             string

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Loop. nodes is the scanner's registry (used to resolve
// sync://<id> master references); sc may be nil if scanning is
// disabled, in which case resolution failures never trigger a scan.
// selfPort is this daemon's own HTTP listen port, announced to the
// master as the register request's "address" so it can opportunistically
// seed this slave into its scanner's known-hosts set (spec.md §4.4.1
// step 3).
func New(log *logrus.Logger, cfg *config.Store, nodes *scanner.Registry, sc *scanner.Scanner, selfPort int) *Loop {
	return &Loop{
		log:      log.WithField("component", "slave"),
		cfg:      cfg,
		nodes:    nodes,
		scanner:  sc,
		client:   httpx.New(5 * time.Second),
		selfPort: selfPort,
		state:    StateIdle,
		slot:     -1,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Snapshot is the slave-loop state exposed to /caps and diagnostics.
type Snapshot struct {
	State                  State
	AppliedGeneration      uint32
	LastReceivedGeneration uint32
	Slot                   int
	SlotLabel              string
}

func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		State:                  l.state,
		AppliedGeneration:      l.appliedGeneration,
		LastReceivedGeneration: l.lastReceivedGeneration,
		Slot:                   l.slot,
		SlotLabel:              l.slotLabel,
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Stop requests the loop to exit at its next opportunity and blocks
// until it has (at most one register interval, per spec.md §5).
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	close(l.stopCh)
	<-l.doneCh
}

func (l *Loop) stopRequested() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

// Run is the long-lived loop body; it returns when Stop is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.doneCh)
	var lastLogged State

	logTransition := func(s State) {
		if s != lastLogged {
			l.log.WithField("state", s).Info("slave loop state change")
			lastLogged = s
		}
	}

	for !l.stopRequested() {
		l.setState(StateResolving)
		logTransition(StateResolving)

		masterURL, err := l.resolveMaster(ctx)
		if err != nil {
			l.log.WithError(err).Warn("master resolution failed")
			if l.scanner != nil {
				l.scanner.Start()
			}
			l.sleep(5 * time.Second)
			continue
		}

		l.setState(StateRegistering)
		logTransition(StateRegistering)

		resp, err := l.register(ctx, masterURL)
		if err != nil {
			l.log.WithError(err).Warn("registration failed")
			l.sleep(5 * time.Second)
			continue
		}

		if resp.Status == "waiting" {
			l.sleep(l.registerInterval())
			continue
		}

		l.mu.Lock()
		l.slot = derefIntOr(resp.Slot, -1)
		l.slotLabel = resp.SlotLabel
		if resp.Generation > l.lastReceivedGeneration {
			l.lastReceivedGeneration = resp.Generation
		}
		l.mu.Unlock()

		if len(resp.Commands) > 0 && resp.Generation > 0 {
			l.setState(StateApplying)
			logTransition(StateApplying)
			if l.apply(ctx, resp.Commands) {
				l.mu.Lock()
				l.appliedGeneration = resp.Generation
				l.mu.Unlock()
			}
		}

		l.setState(StateSleeping)
		logTransition(StateSleeping)
		l.sleep(l.registerInterval())
	}
}

// sleep honours spec.md's "1-second slices" so a stop request is
// noticed promptly rather than after a full interval.
func (l *Loop) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if l.stopRequested() {
			return
		}
		remaining := time.Until(deadline)
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-l.stopCh:
			return
		case <-time.After(slice):
		}
	}
}

func (l *Loop) registerInterval() time.Duration {
	eff := l.cfg.Snapshot()
	return time.Duration(eff.ResolvedRegisterIntervalS()) * time.Second
}

// resolveMaster implements spec.md §4.4.2 "resolving": an HTTP(S) URL
// is used directly; a sync://<id>[/path] reference is looked up in
// the scanner's registry by its advertised sync id.
func (l *Loop) resolveMaster(ctx context.Context) (string, error) {
	ref := l.cfg.Snapshot().ResolvedMasterURL()
	if ref == "" {
		return "", fmt.Errorf("slave: no master reference configured")
	}
	url, err := resolveRef(ref, l.nodes)
	if err != nil {
		return "", err
	}
	l.warnIfNotMaster(ctx, url)
	return url, nil
}

// capsProbe decodes just the field this diagnostic needs from GET
// /caps, ignoring everything else in the response.
type capsProbe struct {
	Role string `json:"role"`
}

// warnIfNotMaster is a best-effort diagnostic: it confirms the
// resolved target actually advertises the master role before
// registering, logging a warning on mismatch. It never blocks
// registration — POST /sync/register itself rejects a non-master
// target with "not_master" — and a probe failure (unreachable,
// non-JSON) is silently ignored since register() will surface the
// real error moments later.
func (l *Loop) warnIfNotMaster(ctx context.Context, masterURL string) {
	var caps capsProbe
	if err := l.client.GetJSON(ctx, strings.TrimSuffix(masterURL, "/")+"/caps", &caps); err != nil {
		return
	}
	if caps.Role != "" && caps.Role != "master" {
		l.log.WithFields(logrus.Fields{"url": masterURL, "role": caps.Role}).
			Warn("resolved master reference does not advertise the master role")
	}
}

func resolveRef(ref string, nodes *scanner.Registry) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if !strings.HasPrefix(ref, "sync://") {
		return "", fmt.Errorf("slave: unrecognized master reference %q", ref)
	}
	rest := strings.TrimPrefix(ref, "sync://")
	id, path, _ := strings.Cut(rest, "/")
	if path != "" {
		path = "/" + path
	}
	if nodes == nil {
		return "", fmt.Errorf("slave: sync id %q not resolvable without a scanner registry", id)
	}
	n, ok := nodes.FindBySyncID(id)
	if !ok {
		return "", fmt.Errorf("slave: sync id %q not found in registry", id)
	}
	return fmt.Sprintf("http://%s:%d%s", n.IP, n.Port, path), nil
}

func (l *Loop) register(ctx context.Context, masterURL string) (syncproto.RegisterResponse, error) {
	eff := l.cfg.Snapshot()
	l.mu.Lock()
	ack := l.appliedGeneration
	l.mu.Unlock()

	req := syncproto.RegisterRequest{
		ID:            eff.SelfID,
		Device:        eff.Device,
		Role:          eff.EffectiveRole(),
		Version:       eff.Version,
		Caps:          strings.Join(eff.Caps, ","),
		AckGeneration: ack,
	}
	if l.selfPort > 0 {
		req.Address = strconv.Itoa(l.selfPort)
	}

	var resp syncproto.RegisterResponse
	err := l.client.PostJSON(ctx, strings.TrimSuffix(masterURL, "/")+"/sync/register", req, &resp)
	return resp, err
}

// apply runs each command in order through the execution runner,
// stopping at the first failure, per spec.md §4.4.3.
func (l *Loop) apply(ctx context.Context, commands []syncproto.CommandPayload) bool {
	eff := l.cfg.Snapshot()
	for _, c := range commands {
		res, err := execrunner.Run(ctx, execrunner.Request{
			Interpreter:    eff.Interpreter,
			Path:           c.Path,
			Args:           c.Args,
			TimeoutMS:      eff.TimeoutMS,
			MaxOutputBytes: eff.MaxOutputBytes,
		})
		if err != nil || res.RC != 0 {
			l.log.WithFields(logrus.Fields{"path": c.Path, "rc": res.RC, "err": err}).
				Warn("command application failed, generation not advanced")
			return false
		}
	}
	return true
}

func derefIntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

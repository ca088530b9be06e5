package scanner

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/sysinfo"
)

// Scanner owns the registry and the transient per-scan worker pool,
// per spec.md §4.3's lifecycle and §5's concurrency model: a single
// atomic admits one concurrent scan, progress counters are atomic,
// the registry has its own mutex.
type Scanner struct {
	log *logrus.Entry

	Registry *Registry

	running atomic.Bool
	seq     atomic.Int64
	done    atomic.Int64
	targets atomic.Int64

	lastStarted  atomic.Int64
	lastFinished atomic.Int64

	Port           int
	Concurrency    int
	StaleMaxMisses int
	ExtraCIDRs     []string
}

// New builds a Scanner bound to the given port.
func New(log *logrus.Logger, port int) *Scanner {
	return &Scanner{
		log:            log.WithField("component", "scanner"),
		Registry:       NewRegistry(),
		Port:           port,
		Concurrency:    DefaultConcurrency,
		StaleMaxMisses: DefaultStaleMaxMisses,
	}
}

// Status returns the current point-in-time scan status.
func (s *Scanner) Status() Status {
	return Status{
		Running:      s.running.Load(),
		Targets:      s.targets.Load(),
		Done:         s.done.Load(),
		LastStarted:  s.lastStarted.Load(),
		LastFinished: s.lastFinished.Load(),
	}
}

// Start attempts to begin a scan. It returns false if one is already
// running (spec.md: "already running").
func (s *Scanner) Start() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	go s.runScan()
	return true
}

func (s *Scanner) runScan() {
	defer s.running.Store(false)

	seq := s.seq.Add(1)
	s.lastStarted.Store(time.Now().Unix())
	s.done.Store(0)

	selfIPs := map[string]bool{}
	ifaces, err := sysinfo.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			selfIPs[ifc.IP] = true
			s.Registry.Upsert(NodeRecord{
				IP:       ifc.IP,
				Port:     s.Port,
				IsSelf:   true,
				LastSeen: time.Now().Unix(),
				SeenScan: seq,
			})
		}
	}

	targets := Plan(s.Registry, s.Port, selfIPs, s.ExtraCIDRs)
	s.targets.Store(int64(len(targets)))

	p := &pool{
		targets:   targets,
		seq:       seq,
		reg:       s.Registry,
		done:      &s.done,
		connectTO: DefaultConnectTimeout,
		healthTO:  DefaultHealthTimeout,
		capsTO:    DefaultCapsTimeout,
	}
	p.run(s.Concurrency)

	s.Registry.PruneAfterScan(seq, s.StaleMaxMisses)
	s.lastFinished.Store(time.Now().Unix())

	s.log.WithFields(logrus.Fields{
		"seq":     seq,
		"targets": len(targets),
	}).Info("scan complete")
}

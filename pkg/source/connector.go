package source

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/store"
)

var (
	// ErrUnknownProducer is returned by [Connector.Deliver] for ports that no
	// applied configuration declared as a producer.
	ErrUnknownProducer = errors.New("unknown transformation producer")

	// ErrUnexpectedFrames is returned by [Connector.Deliver] when a producer
	// sends a transformation between other frames than declared. The sample
	// is dropped.
	ErrUnexpectedFrames = errors.New("producer sent unexpected frames")
)

// Producer declares a port that publishes transformations From -> To.
type Producer struct {
	Task string `toml:"task" json:"task"`
	Port string `toml:"port" json:"port"`
	From string `toml:"from" json:"from"`
	To   string `toml:"to" json:"to"`
}

// Key returns "task.port".
func (p Producer) Key() string { return PortKey(p.Task, p.Port) }

// PortFrame associates a data port with the frame its samples are expressed in.
type PortFrame struct {
	Task  string `toml:"task" json:"task"`
	Port  string `toml:"port" json:"port"`
	Frame string `toml:"frame" json:"frame"`
}

// Configuration is a transformer configuration state.
type Configuration struct {
	Static    []store.Sample
	Ports     []PortFrame
	Producers []Producer
}

// PortKey joins a task and port name.
func PortKey(task, port string) string { return task + "." + port }

// Target receives the connector's output. *view.View satisfies it.
type Target interface {
	PushStatic(source, target string, p pose.Pose) error
	PushDynamic(source, target string, p pose.Pose, at time.Time) error
	RequestPluginDataFrame(obj plugin.Object, frame string)
}

type producerState struct {
	Producer
	healthy bool
}

// Connector feeds a Target from a transformer configuration and its
// producers. It is safe for concurrent use.
type Connector struct {
	target Target
	logger *log.Logger

	mu        sync.Mutex
	ports     map[string]string
	producers map[string]*producerState
}

// NewConnector creates a Connector driving t. A nil logger selects
// log.Default().
func NewConnector(t Target, logger *log.Logger) *Connector {
	if logger == nil {
		logger = log.Default()
	}
	return &Connector{
		target:    t,
		logger:    logger,
		ports:     make(map[string]string),
		producers: make(map[string]*producerState),
	}
}

// Apply pushes every static transformation, replaces the port associations
// and starts accepting samples from producers not seen before. Static
// transformations that fail validation are skipped; their errors are
// returned joined.
func (c *Connector) Apply(cfg Configuration) error {
	var errs []error
	for _, s := range cfg.Static {
		c.logger.Debug("pushing static transformation", "source", s.Source, "target", s.Target)
		if err := c.target.PushStatic(s.Source, s.Target, s.Pose); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.ports)
	for _, pf := range cfg.Ports {
		c.ports[PortKey(pf.Task, pf.Port)] = pf.Frame
	}
	for _, p := range cfg.Producers {
		if _, ok := c.producers[p.Key()]; ok {
			continue
		}
		if err := validateProducer(p); err != nil {
			errs = append(errs, err)
			continue
		}
		c.logger.Debug("connecting producer", "port", p.Key(), "source", p.From, "target", p.To)
		c.producers[p.Key()] = &producerState{Producer: p, healthy: true}
	}
	return errors.Join(errs...)
}

func validateProducer(p Producer) error {
	if p.Task == "" || p.Port == "" {
		return verrors.New(verrors.ErrCodeInvalidConfig, "producer %q needs a task and a port", p.Key())
	}
	for _, name := range []string{p.From, p.To} {
		if err := verrors.ValidateFrameName(name); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "producer %s", p.Key())
		}
	}
	return nil
}

// Deliver handles a sample produced on port. Samples between other frames
// than the producer declared are dropped; the first such sample is logged,
// and so is the first correct sample after it.
func (c *Connector) Deliver(port string, s store.Sample) error {
	c.mu.Lock()
	st, ok := c.producers[port]
	if !ok {
		c.mu.Unlock()
		return verrors.Wrap(verrors.ErrCodeNotFound, ErrUnknownProducer, "%s", port)
	}
	if s.Source != st.From || s.Target != st.To {
		if st.healthy {
			c.logger.Warn("producer sent unexpected transformation, ignoring it until it recovers",
				"port", port, "source", s.Source, "target", s.Target, "want_source", st.From, "want_target", st.To)
			st.healthy = false
		}
		c.mu.Unlock()
		return verrors.Wrap(verrors.ErrCodeInvalidSample, ErrUnexpectedFrames,
			"%s: %s -> %s, want %s -> %s", port, s.Source, s.Target, st.From, st.To)
	}
	if !st.healthy {
		c.logger.Info("producer recovered", "port", port, "source", s.Source, "target", s.Target)
		st.healthy = true
	}
	c.mu.Unlock()

	c.logger.Debug("pushing dynamic transformation", "source", s.Source, "target", s.Target)
	return c.target.PushDynamic(s.Source, s.Target, s.Pose, s.Time)
}

// Handle routes a feed message: samples tagged with a producer port go
// through Deliver, others are pushed as they are.
func (c *Connector) Handle(_ context.Context, msg Message) error {
	if msg.Port != "" {
		return c.Deliver(msg.Port, msg.Sample)
	}
	return msg.Sample.Push(c.target)
}

// PortFrame returns the frame associated with port.
func (c *Connector) PortFrame(port string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, ok := c.ports[port]
	return frame, ok
}

// BindPort requests obj's data frame to be set from port's association.
// It reports whether the port had one.
func (c *Connector) BindPort(port string, obj plugin.Object) bool {
	frame, ok := c.PortFrame(port)
	name := "?"
	if p, isPlugin := obj.Plugin(); isPlugin {
		name = p.Name()
	}
	if !ok {
		c.logger.Debug("no known frame for port", "port", port, "plugin", name)
		return false
	}
	c.logger.Debug("port associated to frame", "port", port, "frame", frame, "plugin", name)
	c.target.RequestPluginDataFrame(obj, frame)
	return true
}

// Producers returns the connected producers sorted by port.
func (c *Connector) Producers() []Producer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Producer, 0, len(c.producers))
	for _, st := range c.producers {
		out = append(out, st.Producer)
	}
	slices.SortFunc(out, func(a, b Producer) int {
		switch {
		case a.Key() < b.Key():
			return -1
		case a.Key() > b.Key():
			return 1
		}
		return 0
	})
	return out
}

// Healthy reports whether the producer on port has only sent expected
// frames since its last mismatch.
func (c *Connector) Healthy(port string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.producers[port]
	return ok && st.healthy
}

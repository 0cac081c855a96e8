package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// OPCUAConfig captures the runtime details required to open an OPC UA session
// against a bridged instrument.
type OPCUAConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	BatchSize        int           `yaml:"batch_size"`
	Nodes            []NodeBinding `yaml:"nodes"`
}

// NodeBinding maps one monitored node to an input channel index.
type NodeBinding struct {
	NodeID  string `yaml:"node_id"`
	Channel int    `yaml:"channel"`
}

func (c *OPCUAConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "ACS Analyzer"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 512
	}
}

func (c *OPCUAConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node binding must be configured")
	}
	seen := make(map[int]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Channel < 0 || n.Channel >= domain.NumChannels {
			return fmt.Errorf("node %q bound to channel %d out of range 0..%d", n.NodeID, n.Channel, domain.NumChannels-1)
		}
		if seen[n.Channel] {
			return fmt.Errorf("channel %d bound to more than one node", n.Channel)
		}
		seen[n.Channel] = true
	}
	return nil
}

// OPCUABridge exposes an OPC UA server's monitored values as a sample device.
// Each bound node feeds one channel; a batch is released once every
// configured channel has accumulated a full batch of values.
type OPCUABridge struct {
	cfg OPCUAConfig

	mu        sync.Mutex
	cond      *sync.Cond
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handleMap map[uint32]NodeBinding
	pending   map[int][]float64
	active    []int // channel indices required per batch
	next      uint64
	connected bool
}

func NewOPCUABridge(cfg OPCUAConfig) (*OPCUABridge, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &OPCUABridge{cfg: cfg}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

func (b *OPCUABridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return errors.New("opcua bridge already connected")
	}
	b.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())

	client, err := opcua.NewClient(b.cfg.Endpoint, b.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: new client: %v", ErrConnection, err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("%w: connect %s: %v", ErrConnection, b.cfg.Endpoint, err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(b.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: b.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("%w: subscribe: %v", ErrConnection, err)
	}

	handleMap := make(map[uint32]NodeBinding, len(b.cfg.Nodes))
	for i, node := range b.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			b.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		handle := uint32(i + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if b.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(b.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			b.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("%w: monitor node %q: %v", ErrConnection, node.NodeID, err)
		}
		if len(res.Results) == 0 || res.Results[0].StatusCode != ua.StatusOK {
			b.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("%w: monitor node %q rejected", ErrConnection, node.NodeID)
		}
		handleMap[handle] = node
	}

	b.mu.Lock()
	b.client = client
	b.sub = sub
	b.cancel = cancel
	b.handleMap = handleMap
	b.pending = make(map[int][]float64)
	b.next = 0
	b.connected = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.consume(runCtx, notifyCh)
	return nil
}

func (b *OPCUABridge) Configure(channels []domain.Channel, sampleRate float64) error {
	if sampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	bound := make(map[int]bool, len(b.cfg.Nodes))
	for _, n := range b.cfg.Nodes {
		bound[n.Channel] = true
	}
	var active []int
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		if !bound[ch.Index] {
			return fmt.Errorf("channel %d enabled but not bound to a node", ch.Index)
		}
		active = append(active, ch.Index)
	}
	if len(active) == 0 {
		return errors.New("no enabled channels")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = active
	b.pending = make(map[int][]float64)
	b.next = 0
	return nil
}

// ReadBatch blocks until every active channel has a full batch of values, or
// the bridge disconnects.
func (b *OPCUABridge) ReadBatch() (*domain.SampleBatch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.active) == 0 {
		return nil, ErrNotConfigured
	}
	for {
		if !b.connected {
			return nil, ErrNotConnected
		}
		if b.batchReadyLocked() {
			break
		}
		b.cond.Wait()
	}

	n := b.cfg.BatchSize
	batch := &domain.SampleBatch{
		StartIndex: b.next,
		Timestamp:  time.Now(),
		Samples:    make(map[int][]float64, len(b.active)),
	}
	for _, idx := range b.active {
		values := b.pending[idx]
		batch.Samples[idx] = append([]float64(nil), values[:n]...)
		b.pending[idx] = values[n:]
	}
	b.next += uint64(n)
	return batch, nil
}

func (b *OPCUABridge) batchReadyLocked() bool {
	for _, idx := range b.active {
		if len(b.pending[idx]) < b.cfg.BatchSize {
			return false
		}
	}
	return true
}

func (b *OPCUABridge) Disconnect() error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	cancel := b.cancel
	sub := b.sub
	client := b.client
	b.connected = false
	b.cancel = nil
	b.sub = nil
	b.client = nil
	b.cond.Broadcast()
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	b.wg.Wait()
	return err
}

func (b *OPCUABridge) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				log.Printf("opcua: notification error: %v", notif.Error)
				continue
			}
			b.processNotification(notif.Value)
		}
	}
}

func (b *OPCUABridge) processNotification(val interface{}) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range data.MonitoredItems {
		binding, ok := b.handleMap[item.ClientHandle]
		if !ok {
			continue
		}
		fv, ok := variantToFloat(item.Value.Value)
		if !ok {
			log.Printf("opcua: skipping node %s due to unsupported type %T", binding.NodeID, item.Value.Value)
			continue
		}
		b.pending[binding.Channel] = append(b.pending[binding.Channel], fv)
	}
	if b.batchReadyLocked() {
		b.cond.Broadcast()
	}
}

func (b *OPCUABridge) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(b.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(b.cfg.SecurityPolicy)),
		opcua.ApplicationName(b.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if b.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(b.cfg.Username, b.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (b *OPCUABridge) cleanupOnError(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return simHighVolts, true
		}
		return simLowVolts, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.DeviceAdapter = (*OPCUABridge)(nil)

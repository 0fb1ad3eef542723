package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tito-trading/account-probe/internal/config"
	"github.com/tito-trading/account-probe/internal/domain"
	"github.com/tito-trading/account-probe/internal/logger"
	"github.com/tito-trading/account-probe/internal/probe"
	"github.com/tito-trading/account-probe/internal/report"
	"github.com/tito-trading/account-probe/internal/storage"
	"github.com/tito-trading/account-probe/pkg/httpclient"
	"github.com/tito-trading/account-probe/pkg/publishers"
)

// Runner performs one probe, prints the report and forwards the snapshot to the
// optional history store and publishers.
type Runner struct {
	cfg    *config.Config
	probe  *probe.Probe
	store  storage.Store
	fanout *publishers.Fanout
	log    logger.Logger
}

type runnerOptions struct {
	client   httpclient.Client
	registry publishers.Registry
}

// Option overrides a Runner dependency.
type Option func(*runnerOptions)

// WithHTTPClient replaces the resty-backed client used for the account request.
func WithHTTPClient(c httpclient.Client) Option {
	return func(o *runnerOptions) { o.client = c }
}

// WithPublisherRegistry replaces the registry used to build snapshot publishers.
func WithPublisherRegistry(r publishers.Registry) Option {
	return func(o *runnerOptions) { o.registry = r }
}

// NewRunner validates credentials and builds the runtime. Missing credentials
// fail here, before any client, store or publisher is created.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	creds, err := probe.NewCredentials(cfg.KeyID, cfg.SecretKey)
	if err != nil {
		return nil, err
	}

	o := runnerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		var clientOpts []httpclient.Option
		if logger.S != nil {
			clientOpts = append(clientOpts, httpclient.WithLogger(logger.S))
		}
		o.client = httpclient.NewRestyClient(cfg.HTTPTimeout, clientOpts...)
	}
	if o.registry == nil {
		o.registry = publishers.DefaultRegistry()
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if storage.Enabled(cfg.StorageType) {
		log.InfoObj("storage initialized", "storage_config", map[string]any{
			"type":                     cfg.StorageType,
			"path":                     cfg.BBoltPath,
			"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
			"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
		})
	}

	pubCfgs := PublisherConfigs(cfg.Publish)
	pubs, err := publishers.BuildAll(ctx, o.registry, pubCfgs, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubs)
	if fanout.Size() > 0 {
		ids := make([]string, 0, len(pubs))
		for _, p := range pubs {
			ids = append(ids, p.ID())
		}
		log.InfoObj("publishers configured", "publisher_ids", ids)
	}

	return &Runner{
		cfg:    cfg,
		probe:  probe.New(o.client, cfg.AccountURL, creds, log),
		store:  store,
		fanout: fanout,
		log:    log,
	}, nil
}

// Run probes once and writes the report to out. Probe and report failures are
// returned immediately; sink failures are logged and returned after the report.
func (r *Runner) Run(ctx context.Context, out io.Writer) error {
	if r == nil || r.probe == nil {
		return fmt.Errorf("runner is not initialized")
	}

	snap, err := r.probe.Probe(ctx)
	if err != nil {
		return err
	}
	if err := report.Write(out, snap); err != nil {
		return err
	}

	prev := r.previousSnapshot()
	if prev != nil {
		r.logStatusChange(*prev, snap)
	}

	var errs []error
	if err := r.store.SaveSnapshot(snap); err != nil {
		r.log.ErrorObj("snapshot save failed", "storage_error", err.Error())
		errs = append(errs, fmt.Errorf("save snapshot: %w", err))
	}
	if r.fanout.Size() > 0 {
		deliveries, err := r.fanout.Publish(ctx, publishers.NewEvent(snap, prev))
		if err != nil {
			r.log.ErrorObj("snapshot publish failed", "publish_error", map[string]any{
				"delivered": publishers.Delivered(deliveries),
				"error":     err.Error(),
			})
			errs = append(errs, fmt.Errorf("publish snapshot: %w", err))
		} else {
			r.log.InfoObj("snapshot published", "publish_result", map[string]any{
				"delivered": publishers.Delivered(deliveries),
			})
		}
	}
	return errors.Join(errs...)
}

// previousSnapshot returns the latest recorded snapshot, or nil when history is
// disabled, empty or unreadable. A read failure never fails the run.
func (r *Runner) previousSnapshot() *domain.Snapshot {
	snaps, err := r.store.RecentSnapshots(1)
	if err != nil {
		r.log.WarnObj("snapshot history read failed", "storage_error", err.Error())
		return nil
	}
	if len(snaps) == 0 {
		return nil
	}
	return &snaps[0]
}

func (r *Runner) logStatusChange(prev, cur domain.Snapshot) {
	fields := map[string]any{
		"endpoint":        cur.Endpoint,
		"previous_status": prev.StatusCode,
		"current_status":  cur.StatusCode,
		"previous_at":     prev.RequestedAt,
		"body_changed":    prev.Body != cur.Body,
	}
	if prev.StatusCode != cur.StatusCode {
		r.log.InfoObj("account status changed", "account_status", fields)
		return
	}
	r.log.DebugObj("account status unchanged", "account_status", fields)
}

// Close releases the store and publisher clients.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PublisherConfigs derives the sink list from environment settings. A sink is
// included when its target is set; PUBLISH_HTTP_URL may list several webhooks
// separated by commas. Each ID names its target, so a repeated target fails BuildAll.
func PublisherConfigs(p config.PublishConfig) []publishers.PublisherConfig {
	aws := func(region string) publishers.AWSConfig {
		return publishers.AWSConfig{
			Region:          region,
			Endpoint:        p.AWSEndpoint,
			AccessKeyID:     p.AWSAccessKeyID,
			SecretAccessKey: p.AWSSecretAccessKey,
		}
	}
	id := func(typ, target string) string { return typ + ":" + target }

	var out []publishers.PublisherConfig
	for _, url := range strings.Split(p.HTTPURL, ",") {
		if url = strings.TrimSpace(url); url == "" {
			continue
		}
		out = append(out, publishers.PublisherConfig{
			ID:   id(publishers.TypeHTTP, url),
			Type: publishers.TypeHTTP,
			HTTP: &publishers.HTTPPublisherConfig{
				URL:            url,
				Method:         p.HTTPMethod,
				Headers:        p.HTTPHeaders,
				TimeoutSeconds: p.HTTPTimeoutSeconds,
			},
		})
	}
	if p.SQSQueueURL != "" {
		out = append(out, publishers.PublisherConfig{
			ID:   id(publishers.TypeSQS, p.SQSQueueURL),
			Type: publishers.TypeSQS,
			SQS:  &publishers.SQSPublisherConfig{QueueURL: p.SQSQueueURL, AWS: aws(p.SQSRegion)},
		})
	}
	if p.SNSTopicARN != "" {
		out = append(out, publishers.PublisherConfig{
			ID:   id(publishers.TypeSNS, p.SNSTopicARN),
			Type: publishers.TypeSNS,
			SNS:  &publishers.SNSPublisherConfig{TopicARN: p.SNSTopicARN, AWS: aws(p.SNSRegion)},
		})
	}
	if p.PubSubTopic != "" || p.PubSubProject != "" {
		out = append(out, publishers.PublisherConfig{
			ID:     id(publishers.TypePubSub, p.PubSubProject+"/"+p.PubSubTopic),
			Type:   publishers.TypePubSub,
			PubSub: &publishers.PubSubPublisherConfig{ProjectID: p.PubSubProject, Topic: p.PubSubTopic},
		})
	}
	return out
}

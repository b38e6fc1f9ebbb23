// Package leader provides Kubernetes Lease-based leader election so that only
// one replica seeds the franchise roster and runs the Discord auctioneer.
package leader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/jensholdgaard/cricket-auction/internal/config"
)

// ErrNoLease is returned when the lease is not fully named.
var ErrNoLease = errors.New("lease name and namespace are required")

// identity is POD_NAME when set, otherwise the hostname.
func identity() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// ClientFactory creates a Kubernetes clientset. Tests replace it.
var ClientFactory = func() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("building in-cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Run campaigns for the lease until ctx is done. lead runs while this replica
// holds the lease and must return once its context is canceled; lost runs
// after leadership ends.
func Run(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, lead func(ctx context.Context), lost func()) error {
	if cfg.LeaseName == "" || cfg.LeaseNamespace == "" {
		return fmt.Errorf("leader election: %w", ErrNoLease)
	}

	client, err := ClientFactory()
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}

	id := identity()
	log := logger.With(
		slog.String("identity", id),
		slog.String("lease", cfg.LeaseNamespace+"/"+cfg.LeaseName),
	)

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock: &resourcelock.LeaseLock{
			LeaseMeta: metav1.ObjectMeta{
				Name:      cfg.LeaseName,
				Namespace: cfg.LeaseNamespace,
			},
			Client:     client.CoordinationV1(),
			LockConfig: resourcelock.ResourceLockConfig{Identity: id},
		},
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				log.InfoContext(ctx, "acquired leadership")
				lead(ctx)
			},
			OnStoppedLeading: func() {
				log.Info("released leadership")
				lost()
			},
			OnNewLeader: func(current string) {
				if current != id {
					log.Info("following leader", slog.String("leader", current))
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configuring leader election: %w", err)
	}

	log.InfoContext(ctx, "campaigning for leadership")
	elector.Run(ctx)
	return nil
}

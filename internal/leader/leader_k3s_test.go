package leader_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/k3s"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/leader"
)

func TestRun_K3s(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping k3s integration test in short mode")
	}
	t.Setenv("POD_NAME", "auctiond-0")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := k3s.Run(ctx, "rancher/k3s:v1.31.6-k3s1")
	testcontainers.CleanupContainer(t, ctr)
	assert.NoError(t, err)

	kubeConfig, err := ctr.GetKubeConfig(ctx)
	assert.NoError(t, err)
	restCfg, err := clientcmd.RESTConfigFromKubeConfig(kubeConfig)
	assert.NoError(t, err)
	clientset, err := kubernetes.NewForConfig(restCfg)
	assert.NoError(t, err)

	orig := leader.ClientFactory
	leader.ClientFactory = func() (kubernetes.Interface, error) { return clientset, nil }
	t.Cleanup(func() { leader.ClientFactory = orig })

	cfg := config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "auctiond-seed",
		LeaseNamespace: "default",
		LeaseDuration:  5 * time.Second,
		RenewDeadline:  3 * time.Second,
		RetryPeriod:    time.Second,
	}

	seeded := make(chan struct{})
	stopped := make(chan struct{})
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- leader.Run(runCtx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
			func(ctx context.Context) {
				close(seeded)
				<-ctx.Done()
			},
			func() { close(stopped) },
		)
	}()

	select {
	case <-seeded:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for leadership")
	}

	lease, err := clientset.CoordinationV1().Leases(cfg.LeaseNamespace).Get(ctx, cfg.LeaseName, metav1.GetOptions{})
	assert.NoError(t, err)
	assert.NotNil(t, lease.Spec.HolderIdentity)
	check.Equal(t, "auctiond-0", *lease.Spec.HolderIdentity)

	stop()
	select {
	case err := <-done:
		check.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
	<-stopped

	lease, err = clientset.CoordinationV1().Leases(cfg.LeaseNamespace).Get(ctx, cfg.LeaseName, metav1.GetOptions{})
	assert.NoError(t, err)
	if lease.Spec.HolderIdentity != nil {
		check.Equal(t, "", *lease.Spec.HolderIdentity)
	}
}

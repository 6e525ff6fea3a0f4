// Command larchd serves layers over HTTP from tiered filesystem storage:
// an authoritative primary tier, a fast local cache tier, and the scratch
// and upload staging areas the two are maintained through.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/crgimenes/goconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quay/zlog"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/larchio/larch/internal/archive"
	"github.com/larchio/larch/internal/tier"
	"github.com/larchio/larch/manager"
	"github.com/larchio/larch/manager/httpapi"
)

// Config is parsed with goconfig from environment variables.
type Config struct {
	HTTPListenAddr   string  `cfgDefault:"0.0.0.0:8080" cfg:"HTTP_LISTEN_ADDR"`
	PrimaryRoot      string  `cfg:"PRIMARY_ROOT" cfgHelper:"Primary tier root directory (required)"`
	LocalRoot        string  `cfg:"LOCAL_ROOT" cfgHelper:"Local tier root directory (required)"`
	ScratchRoot      string  `cfg:"SCRATCH_ROOT" cfgHelper:"Scratch tier root directory (required)"`
	UploadRoot       string  `cfg:"UPLOAD_ROOT" cfgHelper:"Upload tier root directory (required)"`
	LogLevel         string  `cfgDefault:"info" cfg:"LOG_LEVEL" cfgHelper:"Log levels: debug, info, warn, error, fatal, panic"`
	SkipMountCheck   bool    `cfgDefault:"false" cfg:"SKIP_MOUNT_CHECK" cfgHelper:"Skip the scratch/local co-mount startup probe"`
	TraceSampleRatio float64 `cfgDefault:"0" cfg:"TRACE_SAMPLE_RATIO" cfgHelper:"Fraction of requests to trace, 0..1 (0 disables tracing)"`
}

// setupTracing installs a process-wide TracerProvider sampling at conf's
// configured ratio. With the default ratio of 0 this still installs a real
// SDK provider rather than leaving the package-global no-op in place, so
// the manager package's tracer.Start calls are always talking to a real
// (if fully down-sampled) provider. No span exporter is registered, so
// sampled spans are not sent anywhere.
func setupTracing(ctx context.Context, conf Config) (shutdown func(context.Context) error, err error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", "larchd")),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(conf.TraceSampleRatio))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func main() {
	ctx := context.Background()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true}).
		With().Timestamp().Caller().
		Logger()

	conf := Config{}
	if err := goconfig.Parse(&conf); err != nil {
		log.Fatal().Msgf("failed to parse config: %v", err)
	}
	for name, v := range map[string]string{
		"PRIMARY_ROOT": conf.PrimaryRoot,
		"LOCAL_ROOT":   conf.LocalRoot,
		"SCRATCH_ROOT": conf.ScratchRoot,
		"UPLOAD_ROOT":  conf.UploadRoot,
	} {
		if v == "" {
			log.Fatal().Msgf("missing required config: %s", name)
		}
	}

	log = log.Level(logLevel(conf))
	zlog.Set(&log)

	shutdownTracing, err := setupTracing(ctx, conf)
	if err != nil {
		log.Fatal().Msgf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Error().Msgf("tracer shutdown: %v", err)
		}
	}()

	primary, err := tier.Open(tier.Primary, conf.PrimaryRoot)
	if err != nil {
		log.Fatal().Msgf("failed to open primary tier: %v", err)
	}
	local, err := tier.Open(tier.Local, conf.LocalRoot)
	if err != nil {
		log.Fatal().Msgf("failed to open local tier: %v", err)
	}
	scratch, err := tier.Open(tier.Scratch, conf.ScratchRoot)
	if err != nil {
		log.Fatal().Msgf("failed to open scratch tier: %v", err)
	}
	upload, err := tier.Open(tier.Upload, conf.UploadRoot)
	if err != nil {
		log.Fatal().Msgf("failed to open upload tier: %v", err)
	}

	if !conf.SkipMountCheck {
		if err := manager.CheckMount(scratch, local); err != nil {
			log.Fatal().Msgf("startup mount check failed: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	mgr := manager.New(primary, local, scratch, upload, archive.Codec{}, reg)
	h := httpapi.NewHandler(mgr, reg)

	srv := &http.Server{
		Addr:        conf.HTTPListenAddr,
		Handler:     h,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	zlog.Info(ctx).Str("addr", conf.HTTPListenAddr).Msg("starting http server")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Msgf("failed to start http server: %v", err)
	}
}

func logLevel(conf Config) zerolog.Level {
	if l, err := zerolog.ParseLevel(strings.ToLower(conf.LogLevel)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

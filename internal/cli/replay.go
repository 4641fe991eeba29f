package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/voxtel/voxtel/internal/config"
	"github.com/voxtel/voxtel/internal/logger"
	"github.com/voxtel/voxtel/internal/metrics"
	"github.com/voxtel/voxtel/pkg/pricing"
	"github.com/voxtel/voxtel/pkg/tracesink"
	"github.com/voxtel/voxtel/pkg/voicesession"
)

// controlLine covers the session-lifecycle lines of a capture file; event
// lines are handled by voicesession.DecodeEnvelope.
type controlLine struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Model     string `json:"model"`
	Reason    string `json:"reason"`
}

var replayCmd = &cobra.Command{
	Use:   "replay <capture.jsonl>",
	Short: "Replay a captured telemetry stream through the session manager",
	Long: `Replay reads a JSONL capture of voice-session telemetry (session_start,
turn and tool events, session_end) and drives the session manager with it,
printing end-of-session summaries as JSON lines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(args[0])
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(path string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer lg.Close()

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("capture", path).Msg("Starting replay")

	table := pricing.NewTable()
	if cfg.Pricing.OverridesPath != "" {
		if err := table.LoadOverrides(cfg.Pricing.OverridesPath); err != nil {
			return err
		}
	}

	var sink tracesink.Sink
	if cfg.Tracing.Enabled {
		tp, err := tracesink.NewOTelProvider(cfg.Tracing.ServiceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to shut down tracer provider")
			}
		}()
		sink = tracesink.NewOTelSink(tp)
	} else {
		sink = tracesink.NewMemorySink()
	}

	m := metrics.NewMetrics()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics endpoint listening")
	}

	manager := voicesession.New(voicesession.Config{
		Sink:          sink,
		Pricing:       table,
		Metrics:       m,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		DefaultModel:  cfg.Session.DefaultModel,
	})
	defer manager.Shutdown(context.Background())

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer file.Close()

	out := json.NewEncoder(os.Stdout)
	ctx := context.Background()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ctl controlLine
		if err := json.Unmarshal(line, &ctl); err != nil {
			log.Warn().Int("line", lineNum).Err(err).Msg("Skipping unparseable line")
			continue
		}

		switch ctl.Type {
		case "session_start":
			manager.CreateSession(ctx, ctl.SessionID, voicesession.CreateOptions{
				UserID: ctl.UserID,
				Model:  ctl.Model,
			})
		case "session_end":
			reason := voicesession.EndReason(ctl.Reason)
			if reason == "" {
				reason = voicesession.EndUserDisconnect
			}
			if ended := manager.EndSession(ctx, ctl.SessionID, reason); ended != nil {
				if err := out.Encode(ended); err != nil {
					return fmt.Errorf("failed to write summary: %w", err)
				}
			}
		default:
			env, err := voicesession.DecodeEnvelope(line)
			if err != nil {
				log.Warn().Int("line", lineNum).Err(err).Msg("Skipping invalid event")
				continue
			}
			manager.RecordEvent(ctx, env.SessionID, env.Event, env.Timestamp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read capture file: %w", err)
	}

	log.Info().
		Str("run_id", runID).
		Int("lines", lineNum).
		Int("sessions_left_open", manager.ActiveSessionCount()).
		Msg("Replay finished")

	return nil
}

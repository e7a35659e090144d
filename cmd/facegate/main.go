// facegate is the operator CLI for the face gate service. It drives
// the same engines the service uses, fed with frame images from disk,
// for enrollment, verification and template administration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/camera"
	"github.com/nirmaltodwal7/facegate/pkg/config"
	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/gate"
	"github.com/nirmaltodwal7/facegate/pkg/liveness"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/quota"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"enroll": {
			Name:        "enroll",
			Description: "Enroll a user from frame images in a directory",
			Usage:       "facegate enroll <user-id> <frames-dir>",
			Run:         cmdEnroll,
		},
		"verify": {
			Name:        "verify",
			Description: "Run one verification attempt from a frame image",
			Usage:       "facegate verify <user-id> <frame-file>",
			Run:         cmdVerify,
		},
		"status": {
			Name:        "status",
			Description: "Show a user's enrollment status",
			Usage:       "facegate status <user-id>",
			Run:         cmdStatus,
		},
		"remove": {
			Name:        "remove",
			Description: "Remove a user's face templates",
			Usage:       "facegate remove <user-id>",
			Run:         cmdRemove,
		},
		"list": {
			Name:        "list",
			Description: "List all enrolled users",
			Usage:       "facegate list",
			Run:         cmdList,
		},
		"quota-reset": {
			Name:        "quota-reset",
			Description: "Reset a user's daily attempt counter",
			Usage:       "facegate quota-reset <user-id>",
			Run:         cmdQuotaReset,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "facegate config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "facegate version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "facegate help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.Format, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FaceGate - Face Verification for the Benefits Dashboard")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: facegate [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"enroll", "verify", "status", "remove", "list", "quota-reset", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  facegate enroll alice ./frames/   # Enroll 'alice' from ./frames/*.jpg")
	fmt.Println("  facegate verify alice shot.jpg    # Verify 'alice' against one frame")
	fmt.Println("\nRun 'facegate help <command>' for more information on a command.")
}

// buildGate assembles the engines over the file store with the process
// local quota tracker. The CLI always works directly on local data.
func buildGate() (*gate.Gate, *storage.FileStore, error) {
	store, err := storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("open template store: %w", err)
	}

	tracker := quota.NewTracker(quota.NewMemoryStore(), cfg.Quota.DailyLimit)
	evaluator := liveness.NewEvaluator(cfg.Liveness.EARThreshold)

	g := gate.New(store, tracker, evaluator, gate.Options{
		MatchThreshold: cfg.Face.MatchThreshold,
		SampleCount:    cfg.Face.SampleCount,
		SampleInterval: 0, // frames are pre-captured, no pacing needed
		SampleTimeout:  cfg.Face.SampleTimeout,
		Retention:      gate.RetentionPolicy(cfg.Storage.RetentionPolicy),
	})
	return g, store, nil
}

// buildDetector loads the configured face backend.
func buildDetector() (face.Detector, error) {
	det := face.NewDlibDetector()
	if err := det.LoadModels(cfg.Face.ModelPath); err != nil {
		return nil, err
	}
	return det, nil
}

// loadFrames reads image files from a directory in name order.
func loadFrames(dir string) ([]face.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]face.Frame, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", name, err)
		}
		frames = append(frames, face.Frame{Data: data, Timestamp: time.Now()})
	}
	return frames, nil
}

func loadFrame(path string) (face.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return face.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return face.Frame{Data: data, Timestamp: time.Now()}, nil
}

// Command implementations

func cmdEnroll(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("user id and frames directory required\nUsage: %s", commands["enroll"].Usage)
	}
	userID, dir := args[0], args[1]

	frames, err := loadFrames(dir)
	if err != nil {
		return err
	}
	if len(frames) < cfg.Face.SampleCount {
		return fmt.Errorf("need at least %d frames, found %d in %s", cfg.Face.SampleCount, len(frames), dir)
	}

	g, _, err := buildGate()
	if err != nil {
		return err
	}
	det, err := buildDetector()
	if err != nil {
		return err
	}
	defer det.Close()

	fmt.Printf("Enrolling '%s' from %d frames...\n", userID, len(frames))

	src := camera.NewSampler(camera.NewFrameQueue(frames), det)
	tpl, err := g.Enroll(context.Background(), userID, src)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled '%s' at %s (%d samples averaged)\n",
		tpl.UserID, tpl.CreatedAt.Format(time.RFC3339), cfg.Face.SampleCount)
	return nil
}

func cmdVerify(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("user id and frame file required\nUsage: %s", commands["verify"].Usage)
	}
	userID, path := args[0], args[1]

	frame, err := loadFrame(path)
	if err != nil {
		return err
	}

	g, _, err := buildGate()
	if err != nil {
		return err
	}
	det, err := buildDetector()
	if err != nil {
		return err
	}
	defer det.Close()

	src := camera.NewSampler(camera.NewFrameQueue([]face.Frame{frame}), det)
	outcome, err := g.Verify(context.Background(), userID, src)
	if err != nil {
		return err
	}

	if outcome.Matched {
		fmt.Printf("MATCH (distance %.4f, confidence %.1f%%)\n", outcome.Distance, outcome.Confidence)
	} else {
		fmt.Printf("NO MATCH (distance %.4f, threshold %.2f)\n", outcome.Distance, cfg.Face.MatchThreshold)
	}
	return nil
}

func cmdStatus(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user id required\nUsage: %s", commands["status"].Usage)
	}
	userID := args[0]

	g, _, err := buildGate()
	if err != nil {
		return err
	}

	count, oldest, err := g.Status(context.Background(), userID)
	if err != nil {
		if gate.CodeOf(err) == gate.CodeNotEnrolled {
			fmt.Printf("User '%s' is not enrolled.\n", userID)
			return nil
		}
		return err
	}

	fmt.Printf("User '%s': %d template(s), enrolled since %s\n",
		userID, count, oldest.Format(time.RFC3339))
	return nil
}

func cmdRemove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user id required\nUsage: %s", commands["remove"].Usage)
	}
	userID := args[0]

	g, _, err := buildGate()
	if err != nil {
		return err
	}

	if err := g.Remove(context.Background(), userID); err != nil {
		return err
	}
	fmt.Printf("Removed face templates for '%s'\n", userID)
	return nil
}

func cmdList(args []string) error {
	_, store, err := buildGate()
	if err != nil {
		return err
	}

	users, err := store.ListUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users enrolled.")
		return nil
	}

	fmt.Printf("Enrolled users (%d):\n", len(users))
	for _, u := range users {
		fmt.Printf("  %s\n", u)
	}
	return nil
}

func cmdQuotaReset(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user id required\nUsage: %s", commands["quota-reset"].Usage)
	}
	userID := args[0]

	g, _, err := buildGate()
	if err != nil {
		return err
	}
	if err := g.ResetQuota(context.Background(), userID); err != nil {
		return err
	}
	fmt.Printf("Quota reset for '%s'\n", userID)
	return nil
}

func cmdConfig(args []string) error {
	fmt.Println("Current configuration:")
	fmt.Printf("  Face backend:      %s\n", cfg.Face.Backend)
	fmt.Printf("  Model path:        %s\n", cfg.Face.ModelPath)
	fmt.Printf("  Match threshold:   %.2f\n", cfg.Face.MatchThreshold)
	fmt.Printf("  Sample count:      %d\n", cfg.Face.SampleCount)
	fmt.Printf("  EAR threshold:     %.2f\n", cfg.Liveness.EARThreshold)
	fmt.Printf("  Daily quota:       %d\n", cfg.Quota.DailyLimit)
	fmt.Printf("  Storage backend:   %s\n", cfg.Storage.Backend)
	fmt.Printf("  Data directory:    %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Encryption:        %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Printf("  Retention policy:  %s\n", cfg.Storage.RetentionPolicy)
	fmt.Printf("  Log level:         %s\n", cfg.Logging.Level)
	return nil
}

func cmdVersion(args []string) error {
	fmt.Printf("facegate v%s\n", version)
	return nil
}

func cmdHelp(args []string) error {
	if len(args) < 1 {
		printUsage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	fmt.Printf("%s - %s\n\nUsage: %s\n", cmd.Name, cmd.Description, cmd.Usage)
	return nil
}

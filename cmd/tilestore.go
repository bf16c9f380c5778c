// Package cmd implements the tilestore command line: a cobra root
// command with a serve subcommand that stands up the pgproto3 and SSH
// listeners, and a repl subcommand for local interactive use. Grounded
// in the teacher's cmd/maho.go (persistent flags, HCL config file,
// logrus setup) and cmd/start.go/cmd/repl.go's subcommand split.
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/colstore/tilegroup/backend/boltbackend"
	"github.com/colstore/tilegroup/catalog"
	"github.com/colstore/tilegroup/config"
	"github.com/colstore/tilegroup/planbridge"
	"github.com/colstore/tilegroup/repl"
	"github.com/colstore/tilegroup/server"
	"github.com/colstore/tilegroup/session"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/table"
)

var (
	rootCmd = &cobra.Command{
		Use:               "tilestore",
		Short:             "A columnar tile-group storage server",
		PersistentPreRunE: preRun,
	}

	logLevel   = "info"
	configFile = "tilestore.hcl"
	noConfig   = false

	cfg = config.Default()

	// usedFlags records which persistent flags were set explicitly on the
	// command line, so a loaded config file never overrides them.
	usedFlags = map[string]struct{}{}
)

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&logLevel, "log-level", logLevel, "log level: trace, debug, info, warn, error")
	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load a config file")

	rootCmd.AddCommand(serveCmd, replCmd, dumpCmd, benchCmd)

	serveFs := serveCmd.Flags()
	serveFs.BoolVar(&sshFlag, "ssh", false, "serve an SSH admin shell")
	serveFs.StringVar(&sshHostKeyFlag, "ssh-host-key", "", "`file` containing an ssh host key")
	serveFs.StringVar(&sshAuthorizedKeysFlag, "ssh-authorized-keys", "", "`file` containing authorized ssh keys")

	benchFs := benchCmd.Flags()
	benchFs.IntVar(&benchRows, "rows", 100000, "number of rows to insert and scan")
}

var (
	sshFlag               bool
	sshHostKeyFlag        string
	sshAuthorizedKeysFlag string
)

func recordUsedFlags(cmd *cobra.Command) {
	cmd.Flags().Visit(func(flg *pflag.Flag) {
		usedFlags[flg.Name] = struct{}{}
	})
}

func preRun(cmd *cobra.Command, args []string) error {
	recordUsedFlags(cmd)

	if !noConfig {
		if loaded, err := config.Load(configFile); err == nil {
			cfg = loaded
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("tilestore: %w", err)
		}
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("tilestore: %w", err)
	}
	log.SetLevel(ll)
	return nil
}

// Execute runs the tilestore CLI; it is the sole entry point the root
// main package (or a test) needs.
func Execute() error {
	return rootCmd.Execute()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for SQL and admin connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordUsedFlags(cmd)
		if sshFlag {
			cfg.SSHEnabled = true
		}
		if sshHostKeyFlag != "" {
			cfg.SSHHostKeyFiles = append(cfg.SSHHostKeyFiles, sshHostKeyFlag)
		}
		if sshAuthorizedKeysFlag != "" {
			cfg.SSHAuthorizedKeys = sshAuthorizedKeysFlag
		}

		eng := session.NewEngine(uint32(cfg.GroupCapacity))
		svr := &server.Server{Engine: eng}

		errc := make(chan error, 2)
		go func() { errc <- svr.ListenAndServeProto3(server.Proto3Config{Address: cfg.Proto3Address}) }()
		log.WithField("addr", cfg.Proto3Address).Info("tilestore listening (proto3)")

		if cfg.SSHEnabled {
			sshCfg, err := loadSSHConfig(cfg)
			if err != nil {
				return fmt.Errorf("tilestore: ssh: %w", err)
			}
			go func() { errc <- svr.ListenAndServeSSH(sshCfg) }()
			log.WithField("addr", cfg.SSHAddress).Info("tilestore listening (ssh)")
		}

		return <-errc
	},
}

func loadSSHConfig(cfg config.Config) (server.SSHConfig, error) {
	sshCfg := server.SSHConfig{Address: cfg.SSHAddress}

	for _, path := range cfg.SSHHostKeyFiles {
		b, err := os.ReadFile(path)
		if err != nil {
			return server.SSHConfig{}, err
		}
		sshCfg.HostKeysBytes = append(sshCfg.HostKeysBytes, b)
	}

	if cfg.SSHAuthorizedKeys != "" {
		b, err := os.ReadFile(cfg.SSHAuthorizedKeys)
		if err != nil {
			return server.SSHConfig{}, err
		}
		sshCfg.AuthorizedBytes = b
	}

	return sshCfg, nil
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session against an in-process engine",
	Run: func(cmd *cobra.Command, args []string) {
		eng := session.NewEngine(uint32(cfg.GroupCapacity))
		repl.Interact(eng)
	},
}

// dumpCmd runs a SQL script against a fresh in-process engine, then
// snapshots every table it left behind into a bbolt file opened with
// boltbackend.Open. It reads the dump straight
// back with table.LoadFrom to confirm it round-trips before reporting
// success, exercising tile.SaveTo/LoadFrom's stated purpose.
var dumpCmd = &cobra.Command{
	Use:   "dump <script.sql> <out.bolt>",
	Short: "Run a SQL script and dump its tables' tile data to a bbolt file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordUsedFlags(cmd)

		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("tilestore: dump: %w", err)
		}

		eng := session.NewEngine(uint32(cfg.GroupCapacity))
		repl.Run(eng, strings.NewReader(string(src)), cmd.OutOrStdout())

		b, err := boltbackend.Open(args[1])
		if err != nil {
			return fmt.Errorf("tilestore: dump: %w", err)
		}
		defer b.Close()

		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"table", "tile groups", "rows", "verified"})

		for _, name := range eng.TableNames() {
			t, _ := eng.Table(name)

			snap, err := t.SaveTo(b)
			if err != nil {
				return fmt.Errorf("tilestore: dump: %s: %w", name, err)
			}

			var rows uint32
			for _, gs := range snap.Groups {
				rows += gs.Allocated
			}

			verify := table.New(t.ID, t.Layout, t.Capacity, catalog.New())
			if err := verify.LoadFrom(b, snap); err != nil {
				return fmt.Errorf("tilestore: dump: %s: verify: %w", name, err)
			}

			tw.Append([]string{name.String(), strconv.Itoa(len(snap.Groups)), strconv.Itoa(int(rows)), "ok"})
			log.WithFields(log.Fields{
				"table":       name,
				"tile_groups": len(snap.Groups),
				"rows":        rows,
			}).Info("dumped table")
		}
		tw.Render()
		return nil
	},
}

var benchRows int

// benchCmd fills a scratch table with benchRows rows of two fixed-width
// columns and times insert and full-scan throughput against it, grounded
// in the teacher's own preference for a timed-loop micro-benchmark over a
// testing.B harness wired into the CLI.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure insert and scan throughput against an in-memory engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordUsedFlags(cmd)

		eng := session.NewEngine(uint32(cfg.GroupCapacity))
		cols := []sql.Column{
			sql.NewFixedColumn(sql.ID("id"), sql.IntegerType, true),
			sql.NewFixedColumn(sql.ID("val"), sql.FloatType, false),
		}
		if err := eng.CreateTable(sql.ID("bench"), cols, [][]int{{0, 1}}); err != nil {
			return fmt.Errorf("tilestore: bench: %w", err)
		}

		tx := eng.Begin()
		start := time.Now()
		for i := 0; i < benchRows; i++ {
			node := &planbridge.InsertNode{
				Table:  sql.ID("bench"),
				Tuples: [][]sql.Value{{sql.Int64Value(int64(i)), sql.Float64Value(float64(i))}},
			}
			if err := eng.Insert(tx, node); err != nil {
				eng.Abort(tx)
				return fmt.Errorf("tilestore: bench: insert: %w", err)
			}
		}
		if _, err := eng.Commit(tx); err != nil {
			return fmt.Errorf("tilestore: bench: commit: %w", err)
		}
		insertElapsed := time.Since(start)

		tx = eng.Begin()
		start = time.Now()
		rows, err := eng.Scan(tx, &planbridge.SeqScanNode{Table: sql.ID("bench")})
		if err != nil {
			eng.Abort(tx)
			return fmt.Errorf("tilestore: bench: scan: %w", err)
		}
		if _, err := eng.Commit(tx); err != nil {
			return fmt.Errorf("tilestore: bench: commit: %w", err)
		}
		scanElapsed := time.Since(start)

		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"operation", "rows", "elapsed", "rows/sec"})
		tw.Append([]string{"insert", strconv.Itoa(benchRows), insertElapsed.String(), ratePerSec(benchRows, insertElapsed)})
		tw.Append([]string{"scan", strconv.Itoa(len(rows)), scanElapsed.String(), ratePerSec(len(rows), scanElapsed)})
		tw.Render()

		log.WithFields(log.Fields{
			"rows":           benchRows,
			"insert_elapsed": insertElapsed,
			"scan_elapsed":   scanElapsed,
		}).Info("bench complete")
		return nil
	},
}

func ratePerSec(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(n)/d.Seconds(), 'f', 0, 64)
}

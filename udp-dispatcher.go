package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/castisdev/cilog"
	"github.com/castisdev/udp-dispatcher/dispatch"
	"github.com/kardianos/osext"
)

const (
	moduleName        = "udp-dispatcher"
	moduleVersion     = "1.0.0"
	defaultConfigFile = "udp-dispatcher.yml"
)

func setLog(dir, module, moduleVersion string, minLevel cilog.Level) {
	cilog.Set(cilog.NewLogWriter(dir, module, 10*1024*1024), module, moduleVersion, minLevel)
}

type addrList []string

func (l *addrList) String() string { return strings.Join(*l, ",") }

func (l *addrList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var addrs addrList
	inPath := flag.String("path", "-", `input file path, "-" for stdin`)
	flag.Var(&addrs, "addr", "downstream udp address, host:port or [host]:port, repeatable")
	tee := flag.Bool("tee", false, "copy forwarded chunks to stdout")
	backupDays := flag.Int("backup-days", 0, "backup retention days, 0 disables the sweep")
	backupDir := flag.String("backup-dir", "", "backup directory, default "+dispatch.DefaultBackupDir+" when backup is on")
	statAddr := flag.String("stat-addr", "", "http stat listen address, (ex)127.0.0.1:8181")
	logDir := flag.String("log-dir", "", "cilog directory, empty disables file logging")
	logLevel := flag.Int("log-level", 0, "cilog minimum level")

	execDir, err := osext.ExecutableFolder()
	if err != nil {
		log.Fatal(err)
	}
	cfgPath := flag.String("config", path.Join(execDir, defaultConfigFile), "yaml config file")

	flag.Parse()

	cfg := loadConfig(*cfgPath, flagSet("config"))
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.Path = *inPath
		case "addr":
			cfg.Targets = addrs
		case "tee":
			cfg.Tee = *tee
		case "backup-days":
			cfg.BackupDays = *backupDays
		case "backup-dir":
			cfg.BackupDir = *backupDir
		case "stat-addr":
			cfg.StatAddr = *statAddr
		case "log-dir":
			cfg.LogDir = *logDir
		case "log-level":
			cfg.LogLevel = cilog.Level(*logLevel)
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if cfg.LogDir != "" {
		setLog(cfg.LogDir, moduleName, moduleVersion, cfg.LogLevel)
	}
	cilog.Infof("program started")

	sess, err := dispatch.NewSession(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if cfg.StatAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.StatAddr, sess.StatHandler()); err != nil {
				cilog.Errorf("stat server stopped, %v", err)
			}
		}()
	}

	in, err := dispatch.OpenInput(cfg.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	log.Printf("streaming from %v: sending to %v\n", cfg.Path, strings.Join(cfg.Targets, ", "))
	if err := sess.Run(in); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the yaml config. A missing file is only an error when
// -config was given explicitly; the default next-to-binary file is optional.
func loadConfig(cfgPath string, explicit bool) *dispatch.Config {
	if _, err := os.Stat(cfgPath); err != nil {
		if explicit {
			log.Fatal(err)
		}
		return &dispatch.Config{Path: "-"}
	}
	cfg, err := dispatch.NewConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

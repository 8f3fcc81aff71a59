package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	flags "github.com/rglonek/go-flags"
	"github.com/rglonek/logger"
)

var ErrExecuteError = errors.New("execute error")

type ExecuteError struct {
	Err    error
	Logger *logger.Logger
}

func (e *ExecuteError) Error() string {
	return e.Err.Error()
}

func (e *ExecuteError) Unwrap() error {
	return ErrExecuteError
}

// Error logs err and wraps it so that main does not print it a second time.
func Error(err error, system *System, command []string, params interface{}, args []string) error {
	if err == nil {
		return nil
	}
	system.Logger.Error("%s", err.Error())
	return &ExecuteError{
		Err:    err,
		Logger: system.Logger,
	}
}

type System struct {
	// Logger is set as part of the Initialize function call, after-init functions can use it to log messages
	Logger *logger.Logger
	// all available commands
	Opts *Commands
	// flag parser
	Parser *flags.Parser
	// config file parser
	IniParser *flags.IniParser
	// tail arguments
	Tail     []string
	logLevel logger.LogLevel
}

type Init struct {
	RunExecuteFunction bool // only set to true if you are initializing the application for the first time
}

func Initialize(i *Init, command []string, params interface{}, args ...string) (*System, error) {
	s := &System{
		Logger:    logger.NewLogger(),
		Opts:      &Commands{},
		Parser:    &flags.Parser{},
		IniParser: &flags.IniParser{},
	}
	s.logLevel = logger.INFO
	switch strings.ToUpper(os.Getenv("OSCLUSTER_LOG_LEVEL")) {
	case "DEBUG":
		s.logLevel = logger.DEBUG
	case "INFO":
		s.logLevel = logger.INFO
	case "DETAIL":
		s.logLevel = logger.DETAIL
	case "ERROR":
		s.logLevel = logger.ERROR
	case "CRITICAL":
		s.logLevel = logger.CRITICAL
	case "WARNING":
		s.logLevel = logger.WARNING
	}
	s.Logger.SetLogLevel(s.logLevel)
	if command != nil {
		s.Logger = s.Logger.WithPrefix(fmt.Sprintf("[%s] ", strings.Join(command, ".")))
	}

	if len(args) == 0 {
		args = os.Args[1:]
	}

	s.Parser = flags.NewParser(s.Opts, flags.HelpFlag|flags.PassDoubleDash|flags.IniIncludeDefaults|flags.IniIncludeComments|flags.IniCommentDefaults)
	s.IniParser = flags.NewIniParser(s.Parser)

	cfgFile, err := ConfigFileName()
	if err != nil {
		return s, err
	}
	dir := filepath.Dir(cfgFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0700)
		if err != nil {
			return s, err
		}
	}
	// the file may hold static AWS keys
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		err = os.WriteFile(cfgFile, []byte(""), 0600)
		if err != nil {
			return s, err
		}
	}
	err = s.IniParser.ParseFile(cfgFile)
	if err != nil {
		return s, err
	}

	if !i.RunExecuteFunction {
		// called from within an execute function, only parse
		s.Parser.CommandHandler = func(command flags.Commander, args []string) error {
			return nil
		}
	}

	s.Tail, err = s.Parser.ParseArgs(args)
	if err != nil {
		return s, err
	}
	return s, nil
}

func (s *System) WriteConfigFile() error {
	cfgFile, err := ConfigFileName()
	if err != nil {
		return err
	}
	opts := flags.IniOptions(flags.IniIncludeComments | flags.IniIncludeDefaults | flags.IniCommentDefaults)
	return s.IniParser.WriteFile(cfgFile, opts)
}

func RootDir() (dirPath string, err error) {
	if customEnv, ok := os.LookupEnv("OSCLUSTER_HOME"); ok && customEnv != "" {
		return customEnv, nil
	}
	var home string
	home, err = os.UserHomeDir()
	if err != nil {
		return
	}
	dirPath = path.Join(home, ".oscluster")
	return
}

func ConfigFileName() (cfgFile string, err error) {
	cfgFile = os.Getenv("OSCLUSTER_CONFIG_FILE")
	if cfgFile == "" {
		var home string
		home, err = RootDir()
		if err != nil {
			return
		}
		cfgFile = path.Join(home, "conf")
	}
	return
}

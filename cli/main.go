package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/lewijacn/opensearch-cluster-cdk/cli/cmd"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
)

func main() {
	exitCode := 0
	err := run(os.Args[1:])
	if err != nil {
		if !errors.Is(err, cmd.ErrExecuteError) {
			fmt.Println(err)
		}
		exitCode = 1
	}
	shutdown.WaitJobs()
	os.Exit(exitCode)
}

func run(args []string) error {
	if len(args) == 0 {
		args = []string{"help"}
	}
	err := loadEnvFile()
	if err != nil {
		return err
	}
	err = createHomeDir()
	if err != nil {
		return err
	}

	// first init call: used to run the correct Execute function only
	_, err = cmd.Initialize(&cmd.Init{
		RunExecuteFunction: true,
	}, nil, nil, args...)
	return err
}

// loadEnvFile reads OSCLUSTER_ENV_FILE, or .env when present, without
// overriding variables already set in the environment.
func loadEnvFile() error {
	envFile := os.Getenv("OSCLUSTER_ENV_FILE")
	if envFile == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("could not load %s: %w", envFile, err)
	}
	return nil
}

func createHomeDir() error {
	home, err := cmd.RootDir()
	if err != nil {
		return fmt.Errorf("could not determine user's home directory: %s", err)
	}
	if _, err := os.Stat(home); err != nil {
		err = os.MkdirAll(home, 0700)
		if err != nil {
			return fmt.Errorf("could not create %s, configuration files may not be available: %s", home, err)
		}
	}
	return nil
}

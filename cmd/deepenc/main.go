package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/liwenju0/deepenc/auth"
	"github.com/liwenju0/deepenc/bootstrap"
	"github.com/liwenju0/deepenc/builders"
	"github.com/liwenju0/deepenc/cmd/flags"
	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/discovery"
	"github.com/liwenju0/deepenc/httpserver"
	"github.com/liwenju0/deepenc/interfaces"
	"github.com/liwenju0/deepenc/loader"
	"github.com/liwenju0/deepenc/storage"
)

func main() {
	app := &cli.App{
		Name:  "deepenc",
		Usage: "Protect interpreted source and model artifacts with partial encryption",
		Commands: []*cli.Command{
			buildCommand(),
			scanCommand(),
			encryptFileCommand(),
			decryptFileCommand(),
			verifyCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// keyResolver assembles the default chain from flags and the environment,
// probing for a hardware binding first.
func keyResolver(cCtx *cli.Context, logger *slog.Logger) *auth.Resolver {
	return auth.NewResolver(resolverStrategies(cCtx, logger), logger)
}

func keyFlags() []cli.Flag {
	return []cli.Flag{
		flags.LicenseDirFlag,
		&cli.BoolFlag{
			Name:  "derive-keys",
			Usage: "derive a 32-byte key from non-AES-length license material",
		},
		&cli.StringFlag{
			Name:    "vault-addr",
			Usage:   "HashiCorp Vault address for the vault key source",
			EnvVars: []string{"VAULT_ADDR"},
		},
		&cli.StringFlag{
			Name:  "vault-mount",
			Value: "secret",
			Usage: "Vault KV v2 mount path",
		},
		&cli.StringFlag{
			Name:  "vault-secret-path",
			Value: "deepenc/license",
			Usage: "Vault secret path holding the key",
		},
		&cli.StringSliceFlag{
			Name:  "shamir-share",
			Usage: "Shamir share file, repeatable; two or more reconstruct the key",
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Scan, encrypt and package a project into a protected build",
		Flags: append(append([]cli.Flag{flags.ConfigFlag,
			&cli.StringFlag{Name: "archive", Usage: "also package the build into this zip file"},
		}, keyFlags()...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := builders.LoadBuildConfig(cCtx.String(flags.ConfigFlag.Name))
			if err != nil {
				return err
			}

			keys := keyResolver(cCtx, logger)
			builder := builders.NewProjectBuilder(cfg, keys, logger)

			if cfg.Storage != "" {
				backend, err := newStorageBackend(cfg.Storage, logger)
				if err != nil {
					return err
				}
				builder.Upload = backend
			}

			manifest, err := builder.Build(cCtx.Context)
			if err != nil {
				return err
			}
			logger.Info("Protected build written",
				"output", cfg.OutputDir,
				"modules", len(manifest.ModuleMapping),
				"models", len(manifest.Models))

			if archive := cCtx.String("archive"); archive != "" {
				return builders.Package(cfg.OutputDir, archive, logger)
			}
			return nil
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List the files a build would protect",
		Flags: append([]cli.Flag{flags.ConfigFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := builders.LoadBuildConfig(cCtx.String(flags.ConfigFlag.Name))
			if err != nil {
				return err
			}

			rules := discovery.DefaultRules().Merge(discovery.Rules{
				ExcludeDirs:  cfg.Filters.ExcludeDirs,
				ExcludeFiles: cfg.Filters.ExcludeFiles,
				ExcludePaths: cfg.Filters.ExcludePaths,
			})

			results, err := discovery.NewScanner(cfg.ProjectRoot, rules, logger).Scan()
			if err != nil {
				return err
			}

			for _, fi := range results {
				if fi.Kind == discovery.KindSource {
					fmt.Printf("%-8s %-40s %s\n", fi.Kind, fi.RelPath, fi.UnitName)
				} else {
					fmt.Printf("%-8s %s\n", fi.Kind, fi.RelPath)
				}
			}
			return nil
		},
	}
}

func encryptFileCommand() *cli.Command {
	return &cli.Command{
		Name:      "encrypt-file",
		Usage:     "Encrypt a single file",
		ArgsUsage: "<input> <output>",
		Flags:     append(append([]cli.Flag{flags.EncLenFlag}, keyFlags()...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			if cCtx.NArg() != 2 {
				return fmt.Errorf("expected <input> <output> arguments")
			}

			key, err := keyResolver(cCtx, logger).Key()
			if err != nil {
				return err
			}

			cipher := cryptoutils.NewCipher(cCtx.Int(flags.EncLenFlag.Name))
			return cipher.EncryptFile(cCtx.Args().Get(0), cCtx.Args().Get(1), key)
		},
	}
}

func decryptFileCommand() *cli.Command {
	return &cli.Command{
		Name:      "decrypt-file",
		Usage:     "Decrypt a single file to stdout or a file",
		ArgsUsage: "<input> [output]",
		Flags:     append(append([]cli.Flag{flags.EncLenFlag}, keyFlags()...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			if cCtx.NArg() < 1 {
				return fmt.Errorf("expected <input> argument")
			}

			key, err := keyResolver(cCtx, logger).Key()
			if err != nil {
				return err
			}

			cipher := cryptoutils.NewCipher(cCtx.Int(flags.EncLenFlag.Name))
			plaintext, err := cipher.DecryptFile(cCtx.Args().Get(0), key)
			if err != nil {
				return err
			}

			if out := cCtx.Args().Get(1); out != "" {
				return os.WriteFile(out, plaintext, 0600)
			}
			_, err = os.Stdout.Write(plaintext)
			return err
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Resolve the key and report which source provided it",
		Flags: append(append([]cli.Flag{}, keyFlags()...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			resolver := keyResolver(cCtx, logger)
			if err := resolver.Resolve(cCtx.Context); err != nil {
				return err
			}

			return json.NewEncoder(os.Stdout).Encode(resolver.Info())
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Install the protection system and serve the diagnostics API",
		Flags: append(append(append([]cli.Flag{
			flags.BuildRootFlag,
			flags.EncLenFlag,
			&cli.StringFlag{
				Name:  "listen-addr",
				Value: "127.0.0.1:8080",
				Usage: "address to listen on for the diagnostics API",
			},
		}, keyFlags()...), flags.ServerFlags...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			chain := loader.NewChain(logger)
			sys := bootstrap.NewSystem(bootstrap.Config{
				BuildRoot:  cCtx.String(flags.BuildRootFlag.Name),
				Strategies: resolverStrategies(cCtx, logger),
				Executor:   noopExecutor{},
				EncLen:     cCtx.Int(flags.EncLenFlag.Name),
				Log:        logger,
			}, chain)

			if err := sys.Initialize(cCtx.Context); err != nil {
				return err
			}
			defer sys.Shutdown()

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
			srv, err := httpserver.New(cfg, httpserver.NewHandler(sys, logger))
			if err != nil {
				return err
			}
			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			srv.Shutdown()
			return nil
		},
	}
}

func resolverStrategies(cCtx *cli.Context, logger *slog.Logger) []interfaces.KeyStrategy {
	binding, found := auth.DiscoverBinding(logger)
	if found {
		logger.Info("Hardware key device present")
	}

	cfg := auth.Config{
		Mode:       interfaces.OperatingModeFromEnv(os.Getenv(auth.EnvAuthMode)),
		LicenseDir: cCtx.String(flags.LicenseDirFlag.Name),
		DeriveKeys: cCtx.Bool("derive-keys"),
		Log:        logger,
	}
	if found {
		cfg.Binding = binding
	}
	if addr := cCtx.String("vault-addr"); addr != "" {
		cfg.Vault = &auth.VaultConfig{
			Address:    addr,
			MountPath:  cCtx.String("vault-mount"),
			SecretPath: cCtx.String("vault-secret-path"),
		}
	}
	if shares := cCtx.StringSlice("shamir-share"); len(shares) > 0 {
		cfg.ShamirShares = shares
	}
	return auth.DefaultChain(cfg)
}

// noopExecutor serves the standalone diagnostics binary, which has no host
// runtime to execute decrypted units in.
type noopExecutor struct{}

func (noopExecutor) Execute(source string, ns *interfaces.Namespace) error { return nil }

func newStorageBackend(uri string, logger *slog.Logger) (interfaces.ArtifactBackend, error) {
	return storage.NewFactory(logger).BackendFor(interfaces.ArtifactLocation(uri))
}

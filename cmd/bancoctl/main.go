// Command bancoctl administers the time bank store from the shell: users,
// entries, balances and cycle resets.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/warp/banco-de-horas/app"
	"github.com/warp/banco-de-horas/config"
)

var CLI struct {
	Config string `help:"YAML config file." type:"path" default:"config.yaml"`
	DB     string `help:"SQLite database path (overrides config)." name:"db"`

	User struct {
		Add           UserAddCmd           `cmd:"" help:"Add a user."`
		List          UserListCmd          `cmd:"" help:"List users."`
		SetRate       UserSetRateCmd       `cmd:"" help:"Set a user's hourly rate."`
		HashPasswords UserHashPasswordsCmd `cmd:"" help:"Replace plaintext passwords with bcrypt hashes."`
	} `cmd:"" help:"Manage users."`
	Entry struct {
		List   EntryListCmd   `cmd:"" help:"List a user's entries with their allocation."`
		Credit EntryCreditCmd `cmd:"" help:"Record overtime worked."`
		Debit  EntryDebitCmd  `cmd:"" help:"Record leave taken."`
		Delete EntryDeleteCmd `cmd:"" help:"Delete an entry."`
	} `cmd:"" help:"Manage entries."`
	Balance BalanceCmd `cmd:"" help:"Show a user's dashboard."`
	Reset   ResetCmd   `cmd:"" help:"Start a new cycle for a user."`
	Tax     TaxCmd     `cmd:"" help:"Show the withholding for a gross amount."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bancoctl"),
		kong.Description("Time bank administration"),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.DB != "" {
		cfg.Storage.Path = CLI.DB
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.Open(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	err = ctx.Run(&Context{Service: a.Service, Out: os.Stdout, BcryptCost: cfg.Auth.BcryptCost})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

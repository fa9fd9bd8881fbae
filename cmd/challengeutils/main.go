// Command challengeutils is the operator CLI for challenge queues:
// annotation merges, visibility toggles, status sweeps, team management,
// and queue reports
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"challengeutils/internal/adapters/synapse"
	"challengeutils/internal/core/version"
	"challengeutils/internal/platform/config"
	"challengeutils/internal/platform/logger"
	"challengeutils/internal/platform/store"
	queriessvc "challengeutils/internal/services/queries/service"
	"challengeutils/internal/services/submissions/repo"
	subsvc "challengeutils/internal/services/submissions/service"
	teamsvc "challengeutils/internal/services/teams/service"
)

const usageText = `usage: challengeutils <command> [flags]

commands:
  annotate      merge annotations into a submission status
  acl           toggle annotation visibility on a submission or a whole queue
  status        move a submission (or a whole queue) to a new workflow state
  query         run an evaluation queue query and print rows as JSON lines
  teamdiff      set algebra over two teams' members
  invite        invite a user or email address to a team
  registerteam  register a team to a project's challenge
  evaluations   list the evaluation queues of a project
  contributors  distinct contributors across queues within a time window
  download      print a submission's artifact metadata
  audit         list recent annotation mutations from the journal
  version       print build information
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
}

// cli bundles the wired services so subcommands stay small
type cli struct {
	client  *synapse.Client
	subs    *subsvc.Service
	teams   *teamsvc.Service
	queries *queriessvc.Service
	journal *repo.PG // nil without SERVICE_PGSQL_DBURL
	closeFn func()
}

func newCLI(ctx context.Context, root config.Conf) *cli {
	l := logger.Get()

	synCfg := root.Prefix("SYNAPSE_")
	client := synapse.NewClient(synapse.Options{
		BaseURL:   synCfg.MayString("BASE_URL", ""),
		AuthToken: synCfg.MustString("AUTH_TOKEN"),
	})

	c := &cli{
		client:  client,
		teams:   teamsvc.New(client),
		queries: queriessvc.New(client),
		closeFn: func() {},
	}

	// the audit journal is optional; no DBURL means no journaling
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	if url := dbCfg.MayString("DBURL", ""); url != "" {
		st, err := store.Open(ctx, store.Config{
			URL:      url,
			MaxConns: int32(dbCfg.MayInt("MAX_CONNS", 2)),
			SlowMs:   dbCfg.MayInt("SLOW_MS", 500),
		})
		if err != nil {
			l.Panic().Err(err).Msg("store.Open failed")
		}
		journal := repo.NewPG(st)
		if err := journal.EnsureSchema(ctx); err != nil {
			l.Panic().Err(err).Msg("audit schema failed")
		}
		c.journal = journal
		c.subs = subsvc.New(client, journal)
		c.closeFn = func() { st.Close() }
		return c
	}
	c.subs = subsvc.New(client, nil)
	return c
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "help", "-h", "--help":
		usage()
		return
	case "version":
		b, _ := json.MarshalIndent(version.Info(), "", "  ")
		fmt.Println(string(b))
		return
	}

	root := config.New()
	l := logger.Get()
	ctx := context.Background()

	c := newCLI(ctx, root)
	defer c.closeFn()

	var err error
	switch cmd {
	case "annotate":
		err = c.annotate(ctx, args)
	case "acl":
		err = c.acl(ctx, args)
	case "status":
		err = c.status(ctx, args)
	case "query":
		err = c.query(ctx, args)
	case "teamdiff":
		err = c.teamdiff(ctx, args)
	case "invite":
		err = c.invite(ctx, args)
	case "registerteam":
		err = c.registerTeam(ctx, args)
	case "evaluations":
		err = c.evaluations(ctx, args)
	case "contributors":
		err = c.contributors(ctx, args)
	case "download":
		err = c.download(ctx, args)
	case "audit":
		err = c.audit(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

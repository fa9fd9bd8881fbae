package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"challengeutils/internal/adapters/synapse"
	perr "challengeutils/internal/platform/errors"
	dom "challengeutils/internal/services/submissions/domain"
	subsvc "challengeutils/internal/services/submissions/service"
)

// emit pretty-prints v on stdout
func emit(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode output")
	}
	fmt.Println(string(b))
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseWhen accepts "YYYY-MM-DD" (midnight UTC) or "YYYY-MM-DD HH:MM"
func parseWhen(label, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.InvalidArgf("bad -%s %q (want YYYY-MM-DD or YYYY-MM-DD HH:MM)", label, v)
}

func (c *cli) annotate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	var (
		fSub      = fs.String("submission", "", "submission id (required)")
		fFile     = fs.String("file", "", "JSON or YAML annotation document")
		fInline   = fs.String("json", "", "inline JSON annotation document")
		fToPublic = fs.Bool("to-public", false, "default new keys to the public side")
		fForce    = fs.Bool("force", false, "let incoming keys switch visibility domains")
	)
	_ = fs.Parse(args)
	if *fSub == "" {
		return perr.InvalidArgf("-submission is required")
	}
	if (*fFile == "") == (*fInline == "") {
		return perr.InvalidArgf("specify exactly one of -file or -json")
	}
	opts := dom.AnnotateOptions{ToPublic: *fToPublic, Force: *fForce}

	if *fFile != "" {
		st, err := c.subs.AnnotateFile(ctx, *fSub, *fFile, opts)
		if err != nil {
			return err
		}
		return emit(st)
	}
	in, err := subsvc.ParseJSON([]byte(*fInline))
	if err != nil {
		return err
	}
	st, err := c.subs.Annotate(ctx, *fSub, in, opts)
	if err != nil {
		return err
	}
	return emit(st)
}

func (c *cli) acl(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("acl", flag.ExitOnError)
	var (
		fSub     = fs.String("submission", "", "submission id")
		fEval    = fs.String("evaluation", "", "evaluation queue id (bulk mode)")
		fKeys    = fs.String("keys", "", "comma-separated annotation keys (required)")
		fPrivate = fs.Bool("private", false, "make the keys private instead of public")
		fStatus  = fs.String("status", "ALL", "bulk mode: only submissions in this state")
	)
	_ = fs.Parse(args)
	keys := splitCSV(*fKeys)
	if len(keys) == 0 {
		return perr.InvalidArgf("-keys is required")
	}
	if (*fSub == "") == (*fEval == "") {
		return perr.InvalidArgf("specify exactly one of -submission or -evaluation")
	}

	if *fEval != "" {
		n, err := c.subs.SetACLAll(ctx, *fEval, keys, *fPrivate, *fStatus)
		if err != nil {
			return err
		}
		return emit(map[string]int{"updated": n})
	}
	st, err := c.subs.SetACL(ctx, *fSub, keys, *fPrivate)
	if err != nil {
		return err
	}
	return emit(st)
}

func (c *cli) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var (
		fSub  = fs.String("submission", "", "submission id")
		fEval = fs.String("evaluation", "", "evaluation queue id (bulk mode)")
		fTo   = fs.String("to", "", "target workflow state (required)")
		fFrom = fs.String("from", "", "bulk mode: only submissions currently in this state")
	)
	_ = fs.Parse(args)
	if *fTo == "" {
		return perr.InvalidArgf("-to is required")
	}
	if (*fSub == "") == (*fEval == "") {
		return perr.InvalidArgf("specify exactly one of -submission or -evaluation")
	}

	if *fEval != "" {
		n, err := c.subs.ChangeAllStatuses(ctx, *fEval, *fFrom, *fTo)
		if err != nil {
			return err
		}
		return emit(map[string]int{"updated": n})
	}
	st, err := c.subs.ChangeStatus(ctx, *fSub, *fTo)
	if err != nil {
		return err
	}
	return emit(st)
}

func (c *cli) query(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	var (
		fQuery  = fs.String("query", "", `queue query, e.g. "select * from evaluation_9614112" (required)`)
		fOffset = fs.Int64("offset", 0, "row offset to start from")
	)
	_ = fs.Parse(args)
	if *fQuery == "" {
		return perr.InvalidArgf("-query is required")
	}

	enc := json.NewEncoder(os.Stdout)
	return c.queries.Run(ctx, *fQuery, *fOffset, func(row map[string]string) error {
		return enc.Encode(row)
	})
}

func (c *cli) teamdiff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("teamdiff", flag.ExitOnError)
	var (
		fA  = fs.String("a", "", "first team id or name (required)")
		fB  = fs.String("b", "", "second team id or name (required)")
		fOp = fs.String("op", "diff", "set operation: diff | intersection | union")
	)
	_ = fs.Parse(args)
	if *fA == "" || *fB == "" {
		return perr.InvalidArgf("-a and -b are required")
	}

	switch *fOp {
	case "diff":
		ms, err := c.teams.MembersDiff(ctx, *fA, *fB)
		if err != nil {
			return err
		}
		return emit(ms)
	case "intersection":
		ms, err := c.teams.MembersIntersection(ctx, *fA, *fB)
		if err != nil {
			return err
		}
		return emit(ms)
	case "union":
		ms, err := c.teams.MembersUnion(ctx, *fA, *fB)
		if err != nil {
			return err
		}
		return emit(ms)
	default:
		return perr.InvalidArgf("unknown -op %q (want diff | intersection | union)", *fOp)
	}
}

func (c *cli) invite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("invite", flag.ExitOnError)
	var (
		fTeam    = fs.String("team", "", "team id or name (required)")
		fUser    = fs.String("user", "", "username or principal id")
		fEmail   = fs.String("email", "", "email address")
		fMessage = fs.String("message", "", "invitation message")
	)
	_ = fs.Parse(args)
	if *fTeam == "" {
		return perr.InvalidArgf("-team is required")
	}

	sent, err := c.teams.Invite(ctx, *fTeam, *fUser, *fEmail, *fMessage)
	if err != nil {
		return err
	}
	if sent == nil {
		fmt.Println("already a member, no invite sent")
		return nil
	}
	return emit(sent)
}

func (c *cli) registerTeam(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("registerteam", flag.ExitOnError)
	var (
		fProject = fs.String("project", "", "challenge project syn id (required)")
		fTeam    = fs.String("team", "", "team id or name (required)")
	)
	_ = fs.Parse(args)
	if *fProject == "" || *fTeam == "" {
		return perr.InvalidArgf("-project and -team are required")
	}

	teamID, err := c.teams.Register(ctx, *fProject, *fTeam)
	if err != nil {
		return err
	}
	return emit(map[string]string{"teamId": teamID})
}

func (c *cli) evaluations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluations", flag.ExitOnError)
	fProject := fs.String("project", "", "project syn id (required)")
	_ = fs.Parse(args)
	if *fProject == "" {
		return perr.InvalidArgf("-project is required")
	}

	enc := json.NewEncoder(os.Stdout)
	return c.client.EvaluationsByContentSource(ctx, *fProject, func(e synapse.Evaluation) error {
		return enc.Encode(e)
	})
}

func (c *cli) contributors(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("contributors", flag.ExitOnError)
	var (
		fEvals  = fs.String("evaluations", "", "comma-separated evaluation queue ids (required)")
		fStatus = fs.String("status", "", "only submissions in this state (empty = all)")
		fSince  = fs.String("since", "", "window start, YYYY-MM-DD or YYYY-MM-DD HH:MM (UTC)")
		fUntil  = fs.String("until", "", "window end, YYYY-MM-DD or YYYY-MM-DD HH:MM (UTC, inclusive)")
	)
	_ = fs.Parse(args)
	evals := splitCSV(*fEvals)
	if len(evals) == 0 {
		return perr.InvalidArgf("-evaluations is required")
	}
	since, err := parseWhen("since", *fSince)
	if err != nil {
		return err
	}
	until, err := parseWhen("until", *fUntil)
	if err != nil {
		return err
	}

	ids, err := c.subs.Contributors(ctx, evals, *fStatus, dom.Window{Since: since, Until: until})
	if err != nil {
		return err
	}
	return emit(ids)
}

func (c *cli) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	var (
		fSub = fs.String("submission", "", "submission id (required)")
		fDir = fs.String("dir", "", "download the submitted file into this directory (metadata only when empty)")
	)
	_ = fs.Parse(args)
	if *fSub == "" {
		return perr.InvalidArgf("-submission is required")
	}

	info, err := c.subs.Download(ctx, *fSub, *fDir)
	if err != nil {
		return err
	}
	return emit(info)
}

func (c *cli) audit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	var (
		fSub   = fs.String("submission", "", "submission id (required)")
		fLimit = fs.Int("limit", 20, "max journal entries")
	)
	_ = fs.Parse(args)
	if *fSub == "" {
		return perr.InvalidArgf("-submission is required")
	}
	if c.journal == nil {
		return perr.InvalidArgf("audit journal not configured (set SERVICE_PGSQL_DBURL)")
	}

	entries, err := c.journal.Recent(ctx, *fSub, *fLimit)
	if err != nil {
		return err
	}
	return emit(entries)
}

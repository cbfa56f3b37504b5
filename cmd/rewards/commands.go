package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/pkg/db"
	"pabuk-rewards/internal/points"
	"pabuk-rewards/internal/service"
)

func userFlag() cli.Flag {
	return &cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "user id", Required: true}
}

func contributionFlag() cli.Flag {
	return &cli.StringFlag{Name: "contribution", Usage: "contribution id", Required: true}
}

func optionalInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "create the reward tables",
			Action: withEngine(func(ctx context.Context, e *engine, _ *cli.Context) error {
				if err := db.Migrate(ctx, e.pool); err != nil {
					return err
				}
				log.Info().Msg("Database migrations completed")
				return nil
			}),
		},
		{
			Name:  "user",
			Usage: "manage reward accounts",
			Subcommands: []*cli.Command{
				{
					Name:  "ensure",
					Usage: "create the reward row of a user if missing",
					Flags: []cli.Flag{
						userFlag(),
						&cli.StringFlag{Name: "name", Usage: "display name"},
					},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						u, err := e.workflow.EnsureUser(ctx, c.String("user"), c.String("name"))
						if err != nil {
							return err
						}
						return printJSON(u)
					}),
				},
			},
		},
		{
			Name:  "submit",
			Usage: "store a pending contribution and pay its provisional points",
			Flags: []cli.Flag{
				userFlag(),
				&cli.StringFlag{Name: "type", Usage: "TEXT, AUDIO, IMAGE or SYNTHETIC", Required: true},
				&cli.StringFlag{Name: "category", Usage: "contribution category", Required: true},
				&cli.StringFlag{Name: "province", Usage: "province id", Required: true},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				res, err := e.workflow.Submit(ctx, service.SubmitInput{
					UserID:     c.String("user"),
					Type:       model.DataType(c.String("type")),
					Category:   model.Category(c.String("category")),
					ProvinceID: c.String("province"),
				})
				if err != nil {
					return err
				}
				return printJSON(res)
			}),
		},
		{
			Name:  "moderate",
			Usage: "apply a moderation decision",
			Flags: []cli.Flag{
				contributionFlag(),
				&cli.StringFlag{Name: "from", Usage: "status the moderator saw", Required: true},
				&cli.StringFlag{Name: "to", Usage: "new status", Required: true},
				&cli.IntFlag{Name: "rating", Usage: "quality rating 1-5"},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				res, err := e.workflow.Moderate(ctx, service.ModerateInput{
					ContributionID: c.String("contribution"),
					OldStatus:      model.Status(c.String("from")),
					NewStatus:      model.Status(c.String("to")),
					QualityRating:  optionalInt(c, "rating"),
				})
				if err != nil {
					return err
				}
				return printJSON(res)
			}),
		},
		{
			Name:  "rerate",
			Usage: "change the quality rating of a contribution",
			Flags: []cli.Flag{
				contributionFlag(),
				&cli.IntFlag{Name: "old", Usage: "rating the moderator saw; omit when unrated"},
				&cli.IntFlag{Name: "new", Usage: "new rating 1-5", Required: true},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				adj, err := e.workflow.Rerate(ctx, service.RerateInput{
					ContributionID: c.String("contribution"),
					OldRating:      optionalInt(c, "old"),
					NewRating:      c.Int("new"),
				})
				if err != nil {
					return err
				}
				return printJSON(adj)
			}),
		},
		{
			Name:  "adjust",
			Usage: "record a manual balance adjustment",
			Flags: []cli.Flag{
				userFlag(),
				&cli.Int64Flag{Name: "amount", Usage: "signed amount", Required: true},
				&cli.StringFlag{Name: "reason", Required: true},
				&cli.StringFlag{Name: "admin", Usage: "admin id", Required: true},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				tx, err := e.ledger.AdminAdjust(ctx, c.String("user"), c.Int64("amount"), c.String("reason"), c.String("admin"))
				if err != nil {
					return err
				}
				return printJSON(tx)
			}),
		},
		{
			Name:  "penalty",
			Usage: "record a penalty",
			Flags: []cli.Flag{
				userFlag(),
				&cli.StringFlag{Name: "kind", Usage: "PENALTY_SPAM, PENALTY_DUPLICATE or PENALTY_LOW_QUALITY", Required: true},
				&cli.Int64Flag{Name: "amount", Usage: "magnitude; 0 uses the default for the kind"},
				&cli.StringFlag{Name: "reason", Required: true},
				&cli.StringFlag{Name: "contribution", Usage: "related contribution id"},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				var ref *string
				if id := c.String("contribution"); id != "" {
					ref = &id
				}
				tx, err := e.ledger.ApplyPenalty(ctx, c.String("user"), model.TransactionKind(c.String("kind")), c.Int64("amount"), c.String("reason"), ref)
				if err != nil {
					return err
				}
				return printJSON(tx)
			}),
		},
		{
			Name:  "summary",
			Usage: "show balance, level, rank and breakdown of a user",
			Flags: []cli.Flag{userFlag()},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				s, err := e.ledger.GetUserSummary(ctx, c.String("user"))
				if err != nil {
					return err
				}
				return printJSON(s)
			}),
		},
		{
			Name:  "history",
			Usage: "list the transactions of a user",
			Flags: []cli.Flag{
				userFlag(),
				&cli.IntFlag{Name: "limit", Value: service.DefaultHistoryLimit},
				&cli.IntFlag{Name: "offset"},
				&cli.StringFlag{Name: "kind", Usage: "only this transaction kind"},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				page, err := e.ledger.GetHistory(ctx, c.String("user"), service.HistoryOptions{
					Limit:  c.Int("limit"),
					Offset: c.Int("offset"),
					Kind:   model.TransactionKind(c.String("kind")),
				})
				if err != nil {
					return err
				}
				return printJSON(page)
			}),
		},
		{
			Name:  "streak",
			Usage: "inspect streaks",
			Subcommands: []*cli.Command{
				{
					Name:  "status",
					Flags: []cli.Flag{userFlag()},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						st, err := e.streaks.GetStreakStatus(ctx, c.String("user"))
						if err != nil {
							return err
						}
						return printJSON(st)
					}),
				},
				{
					Name: "history",
					Flags: []cli.Flag{
						userFlag(),
						&cli.IntFlag{Name: "limit", Value: service.DefaultHistoryLimit},
					},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						h, err := e.streaks.StreakHistory(ctx, c.String("user"), c.Int("limit"))
						if err != nil {
							return err
						}
						return printJSON(h)
					}),
				},
			},
		},
		{
			Name:  "achievements",
			Usage: "inspect and evaluate badges",
			Subcommands: []*cli.Command{
				{
					Name:  "show",
					Usage: "show earned badges and progress",
					Flags: []cli.Flag{userFlag()},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						a, err := e.achievements.GetUserAchievements(ctx, c.String("user"))
						if err != nil {
							return err
						}
						return printJSON(a)
					}),
				},
				{
					Name:  "check",
					Usage: "evaluate and grant badges now",
					Flags: []cli.Flag{userFlag()},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						granted, err := e.achievements.CheckAndAward(ctx, c.String("user"))
						if err != nil {
							return err
						}
						return printJSON(granted)
					}),
				},
			},
		},
		{
			Name:  "badges",
			Usage: "print the badge catalog",
			Action: func(*cli.Context) error {
				return printJSON(points.AllBadges())
			},
		},
		{
			Name:  "estimate",
			Usage: "print what a contribution is worth at each stage",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "type", Required: true},
				&cli.StringFlag{Name: "category", Required: true},
			},
			Action: func(c *cli.Context) error {
				est, err := points.ExamplePoints(model.DataType(c.String("type")), model.Category(c.String("category")))
				if err != nil {
					return err
				}
				return printJSON(est)
			},
		},
		{
			Name:  "leaderboard",
			Usage: "rank users",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "category", Value: string(model.LeaderboardPoints), Usage: "points, contributions or provinces"},
				&cli.IntFlag{Name: "limit", Value: service.DefaultLeaderboardLimit},
				&cli.IntFlag{Name: "offset"},
			},
			Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
				top, err := e.leaderboard.Top(ctx, model.LeaderboardCategory(c.String("category")), c.Int("limit"), c.Int("offset"))
				if err != nil {
					return err
				}
				return printJSON(top)
			}),
			Subcommands: []*cli.Command{
				{
					Name:  "rank",
					Flags: []cli.Flag{userFlag()},
					Action: withEngine(func(ctx context.Context, e *engine, c *cli.Context) error {
						rank, err := e.leaderboard.Rank(ctx, c.String("user"))
						if err != nil {
							return err
						}
						return printJSON(map[string]any{"userId": c.String("user"), "rank": rank})
					}),
				},
				{
					Name:  "rebuild",
					Usage: "reload every balance into the Redis mirror",
					Action: withEngine(func(ctx context.Context, e *engine, _ *cli.Context) error {
						if e.ranks == nil {
							return fmt.Errorf("redis is not enabled")
						}
						n, err := e.leaderboard.Rebuild(ctx)
						if err != nil {
							return err
						}
						return printJSON(map[string]any{"users": n})
					}),
				},
			},
		},
	}
}

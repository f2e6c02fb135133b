package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alekseev-bro/warcore/internal/config"
	"github.com/alekseev-bro/warcore/internal/logging"
	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/dispatch"
	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Play a scripted two-player skirmish and print the committed events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)

		rt, err := newRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		return runDemo(cmd.Context(), rt, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// runDemo creates a game for two players, places a warrior and an archer,
// walks the warrior next to the archer and attacks until the archer falls.
func runDemo(ctx context.Context, rt *runtime, out io.Writer) error {
	var (
		gameID  = domain.NewGameID()
		alice   = domain.NewPlayerID()
		bob     = domain.NewPlayerID()
		warrior = domain.NewUnitID()
		archer  = domain.NewUnitID()
	)

	exec := func(cmd dispatch.Command) error {
		recs, err := rt.Dispatcher.Dispatch(ctx, cmd)
		printRecords(out, recs)
		return err
	}

	setup := []dispatch.Command{
		dispatch.CreateGame{GameID: gameID, PlayerID: alice, Name: "skirmish", CreatedAt: time.Now()},
		dispatch.JoinGame{GameID: gameID, PlayerID: bob, At: time.Now()},
		dispatch.StartGame{GameID: gameID, At: time.Now()},
		dispatch.CreateUnit{UnitID: warrior, OwnerID: alice, GameID: gameID, Type: domain.Warrior,
			Position: domain.Pos(0, 0), Terrain: domain.Plains, CreatedAt: time.Now()},
		dispatch.CreateUnit{UnitID: archer, OwnerID: bob, GameID: gameID, Type: domain.Archer,
			Position: domain.Pos(3, 0), Terrain: domain.Forest, CreatedAt: time.Now()},
		dispatch.MoveUnit{UnitID: warrior, To: domain.Pos(2, 0), At: time.Now()},
	}
	for _, cmd := range setup {
		if err := exec(cmd); err != nil {
			return err
		}
	}

	for {
		defender, err := rt.Units.Load(ctx, aggregate.ID(archer))
		if err != nil {
			return err
		}
		if defender.State.IsDead {
			break
		}
		if err := exec(dispatch.AttackUnit{UnitID: warrior, Target: unit.TargetOf(&defender.State), At: time.Now()}); err != nil {
			return err
		}
	}

	for _, p := range []domain.PlayerID{alice, bob} {
		if err := exec(dispatch.EndTurn{GameID: gameID, PlayerID: p, At: time.Now()}); err != nil {
			return err
		}
	}

	g, err := rt.Games.Load(ctx, aggregate.ID(gameID))
	if err != nil {
		return err
	}
	slog.Info("demo finished", "game_id", gameID.String(), "turn", g.State.CurrentTurn, "version", g.Version)
	fmt.Fprintf(out, "game %s is at turn %d, %s to play\n", gameID, g.State.CurrentTurn, g.State.ActivePlayer)
	return nil
}

func printRecords(out io.Writer, recs []eventbus.Record) {
	for _, r := range recs {
		fmt.Fprintf(out, "%-5s %s v%-3d %s\n", r.Aggregate, r.AggregateID, r.Version, r.Kind)
	}
}

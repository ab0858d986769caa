// Command semaphore-signal demonstrates the full signaling flow: build an
// access set, emit a signal from one member, verify it, and show the replay
// rejection a second signal on the same topic triggers.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"github.com/sabrinahirani/semaphore-stark/pkg/semaphore"
)

func main() {
	members := flag.Int("members", 4, "number of group members")
	member := flag.Int("member", 0, "index of the signaling member")
	topic := flag.String("topic", "proposal-42", "signal topic")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if *members < 1 {
		log.Fatal().Msg("need at least one member")
	}
	if *member < 0 || *member >= *members {
		log.Fatal().Int("member", *member).Int("members", *members).
			Msg("signaling member index out of range")
	}

	// Deterministic demo keys. A deployment would generate these randomly
	// and hand each member its own private key.
	privs := make([]*semaphore.PrivKey, *members)
	pubs := make([]*semaphore.PubKey, *members)
	for i := range privs {
		seed := sha3.Sum256([]byte(fmt.Sprintf("semaphore-demo-key-%d", i)))
		priv, err := semaphore.ParsePrivKey(hex.EncodeToString(seed[:]))
		if err != nil {
			log.Fatal().Err(err).Int("member", i).Msg("failed to build private key")
		}
		pub, err := semaphore.DerivePubKey(priv)
		if err != nil {
			log.Fatal().Err(err).Int("member", i).Msg("failed to derive public key")
		}
		privs[i] = priv
		pubs[i] = pub
		log.Debug().Int("member", i).Str("pub", pub.Hex()).Msg("member key derived")
	}

	set, err := semaphore.NewAccessSet(pubs, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build access set")
	}
	set = set.WithLogger(log)
	log.Info().
		Int("members", set.Size()).
		Int("depth", set.Depth()).
		Str("root", set.Root()).
		Msg("access set committed")

	sig, err := set.MakeSignal(privs[*member], *topic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to make signal")
	}
	log.Info().
		Str("topic", sig.Topic).
		Str("nullifier", sig.Nullifier).
		Int("proof_bytes", len(sig.Proof)).
		Msg("signal created")

	if err := set.VerifySignal(*topic, sig); err != nil {
		log.Fatal().Err(err).Msg("signal rejected")
	}
	log.Info().Msg("signal verified")

	registry := semaphore.NewNullifierRegistry()
	if err := registry.Record(sig.Topic, sig.Nullifier); err != nil {
		log.Fatal().Err(err).Msg("failed to record nullifier")
	}
	log.Info().Msg("nullifier recorded")

	// A second signal from the same member on the same topic produces the
	// same nullifier, so the registry rejects it even though the proof is
	// valid.
	again, err := set.MakeSignal(privs[*member], *topic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to make second signal")
	}
	if err := set.VerifySignal(*topic, again); err != nil {
		log.Fatal().Err(err).Msg("second signal rejected by verifier")
	}
	if err := registry.Record(again.Topic, again.Nullifier); err != nil {
		log.Info().Err(err).Msg("second signal rejected by nullifier registry")
	} else {
		log.Fatal().Msg("double signal was not detected")
	}
}

package main

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/disoardi/sshmenuc/internal/conflict"
	"github.com/disoardi/sshmenuc/internal/crypto"
	"github.com/disoardi/sshmenuc/internal/journal"
	"github.com/disoardi/sshmenuc/internal/passphrase"
	"github.com/disoardi/sshmenuc/internal/profile"
	syncer "github.com/disoardi/sshmenuc/internal/sync"
	"github.com/disoardi/sshmenuc/internal/vcs"
	_ "github.com/disoardi/sshmenuc/internal/vcs/git"
)

// passphraseEnv lets scripts and the watcher supply the passphrase.
const passphraseEnv = "SSHMENUC_PASSPHRASE"

// session bundles everything one command needs to sync one profile.
type session struct {
	sel     *profile.Selection
	remote  vcs.Remote
	engine  *syncer.Engine
	cache   *passphrase.Cache
	journal *journal.Journal
}

func (s *session) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logger.Warn("closing journal", zap.Error(err))
		}
	}
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newPrompter picks a huh form on a terminal and a plain line reader when
// stdin is piped.
func newPrompter() passphrase.Prompter {
	if stdinIsTerminal() {
		return passphrase.FormPrompter{Accessible: accessible}
	}
	return passphrase.TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// newResolver answers conflicts with prefer when set, otherwise asks.
func newResolver(prefer string) (conflict.Resolver, error) {
	if prefer != "" {
		res, err := conflict.ParseResolution(prefer)
		if err != nil {
			return nil, err
		}
		return conflict.Fixed(res), nil
	}
	if stdinIsTerminal() {
		return conflict.PromptResolver{Out: os.Stderr, Accessible: accessible}, nil
	}
	return conflict.LineResolver{In: os.Stdin, Out: os.Stderr}, nil
}

func openSession(resolver conflict.Resolver) (*session, error) {
	sel, err := profile.Select(settings.Paths(), contextName)
	if err != nil {
		return nil, err
	}

	remote, err := vcs.Open(vcs.BackendGit, vcs.Options{
		Timeouts: settings.Timeouts,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	cache := passphrase.NewCache(newPrompter())
	if p := os.Getenv(passphraseEnv); p != "" {
		cache.Set(p)
	}

	s := &session{sel: sel, remote: remote, cache: cache}
	j, err := journal.Open(settings.Journal)
	if err != nil {
		// History is a convenience; syncing works without it.
		logger.Warn("sync history unavailable", zap.Error(err))
	} else {
		s.journal = j
	}

	opts := syncer.Options{
		Profile:            sel.Profile,
		ConfigFile:         sel.ConfigFile,
		Remote:             remote,
		Codec:              crypto.Default,
		Passphrase:         cache,
		Resolver:           resolver,
		SaveMeta:           sel.SaveMeta,
		Logger:             logger,
		PassphraseAttempts: settings.PassphraseAttempts,
	}
	if s.journal != nil {
		opts.Journal = s.journal
	}
	s.engine, err = syncer.New(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

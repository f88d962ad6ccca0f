// Program neverliie is a command-line utility for interacting with
// NeverLiie peers: pinging them, waking them from the registry, invoking
// their exposed operations, and inspecting the registry file directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creachadair/command"

	"github.com/Liiesl/NeverLiie"
	"github.com/Liiesl/NeverLiie/registry"
)

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "Utilities for interacting with NeverLiie peers.",
		Commands: []*command.C{
			{
				Name:  "ping",
				Usage: "<peer-name>",
				Help:  "Report whether a peer is currently reachable.",
				Run:   runPing,
			},
			{
				Name:  "wake",
				Usage: "<peer-name>",
				Help:  "Launch a peer from its registry entry and wait for it to come up.",
				Run:   runWake,
			},
			{
				Name:  "call",
				Usage: "<peer-name> <method> [args-json] [kwargs-json]",
				Help: `Invoke a named operation on a peer and print its result as JSON.

args-json, if given, must be a JSON array; kwargs-json, if given, must be a
JSON object. Both default to empty.`,
				Run: runCall,
			},
			{
				Name: "registry",
				Help: "Inspect or edit the shared peer registry.",
				Commands: []*command.C{
					{
						Name:  "show",
						Usage: "<peer-name>",
						Help:  "Print the registered launch descriptor for a peer.",
						Run:   runRegistryShow,
					},
					{
						Name:  "prune",
						Usage: "<peer-name>",
						Help:  "Remove a peer's registry entry.",
						Run:   runRegistryPrune,
					},
				},
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

func runPing(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("exactly one peer name is required")
	}
	client, err := neverliie.Client()
	if err != nil {
		return err
	}
	if client.Ping(context.Background(), env.Args[0]) {
		fmt.Println("ok")
		return nil
	}
	fmt.Println("offline")
	os.Exit(1)
	return nil
}

func runWake(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("exactly one peer name is required")
	}
	client, err := neverliie.Client()
	if err != nil {
		return err
	}
	return client.Wake(context.Background(), env.Args[0], 5*time.Second)
}

func runCall(env *command.Env) error {
	if len(env.Args) < 2 {
		return env.Usagef("peer name and method are required")
	}
	peerName, method := env.Args[0], env.Args[1]
	rest := env.Args[2:]

	var args []any
	var kwargs map[string]any
	if len(rest) > 0 && rest[0] != "" {
		if err := json.Unmarshal([]byte(rest[0]), &args); err != nil {
			return fmt.Errorf("parse args-json: %w", err)
		}
	}
	if len(rest) > 1 && rest[1] != "" {
		if err := json.Unmarshal([]byte(rest[1]), &kwargs); err != nil {
			return fmt.Errorf("parse kwargs-json: %w", err)
		}
	}

	client, err := neverliie.Client()
	if err != nil {
		return err
	}
	result, err := client.GetPeer(peerName).Call(context.Background(), method, args, kwargs)
	if err != nil {
		return err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runRegistryShow(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("exactly one peer name is required")
	}
	store, err := openRegistry()
	if err != nil {
		return err
	}
	d, ok := store.Get(env.Args[0])
	if !ok {
		return fmt.Errorf("no registry entry for %q", env.Args[0])
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runRegistryPrune(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("exactly one peer name is required")
	}
	store, err := openRegistry()
	if err != nil {
		return err
	}
	return store.Prune(env.Args[0])
}

func openRegistry() (*registry.Store, error) {
	path, err := registry.DefaultPath()
	if err != nil {
		return nil, err
	}
	return registry.NewStore(path), nil
}

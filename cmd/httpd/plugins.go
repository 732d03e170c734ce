package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corehttpd/corehttpd/internal/config"
	"github.com/corehttpd/corehttpd/internal/logging"
	"github.com/corehttpd/corehttpd/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage loaded plugin units",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugin units named in the manifest and their groups",
	RunE:  runPluginsList,
}

var pluginsReloadCmd = &cobra.Command{
	Use:   "reload [unit-id]",
	Short: "Reload one plugin unit, or every unit if no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPluginsReload,
}

var pluginsConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive console routed to loaded plugin units",
	RunE:  runPluginsConsole,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsReloadCmd)
	pluginsCmd.AddCommand(pluginsConsoleCmd)

	pluginsCmd.PersistentFlags().StringVar(&servePluginsPath, "plugins", config.EnvOrDefault("HTTPD_PLUGINS_MANIFEST", "./config/plugins.yaml"), "Path to the plugin manifest")
}

// loadRegistryFromManifest builds a Registry and loads every manual and
// dynamic unit from the manifest, without starting any server or hot
// reload watcher — enough state for the read-only/administrative
// subcommands below to inspect or drive via RouteConsole.
func loadRegistryFromManifest() (*plugin.Registry, error) {
	log, err := logging.New("info", "console", "")
	if err != nil {
		return nil, err
	}
	registry := plugin.NewRegistry(log, nil)
	if _, err := loadPlugins(registry, servePluginsPath, nil, log); err != nil {
		return nil, err
	}
	return registry, nil
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	manifest, err := config.LoadPluginManifest(servePluginsPath)
	if err != nil {
		return err
	}
	for _, spec := range manifest.Manual {
		fmt.Printf("%s\tmanual\tgroups=%v\n", spec.Name, spec.Groups)
	}
	for _, spec := range manifest.Dynamic {
		fmt.Printf("%s\tdynamic\tpath=%s\tgroups=%v\n", spec.Name, spec.Path, spec.Groups)
	}
	return nil
}

func runPluginsReload(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistryFromManifest()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := registry.ReloadUnit(args[0]); err != nil {
			return err
		}
		fmt.Printf("reloaded %s\n", args[0])
		return nil
	}
	if err := registry.ReloadAll(); err != nil {
		return err
	}
	fmt.Println("reloaded all units")
	return nil
}

func runPluginsConsole(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistryFromManifest()
	if err != nil {
		return err
	}
	return plugin.NewConsole(registry).Run()
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/pythonapp"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a devcrew project",
	Long: `Initialize a directory for use with devcrew.

Writes editable copies of the built-in crew definition and a project
config that points at them:
  config/agents.yaml
  config/tasks.yaml
  .devcrew.yaml

Existing files are kept unless --force is given.

Examples:
  devcrew init              # Initialize current directory
  devcrew init ./myproject  # Initialize specific directory
  devcrew init --force      # Overwrite existing files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing devcrew in %s...\n\n", absPath)

	for _, name := range []string{pythonapp.AgentsConfigPath, pythonapp.TasksConfigPath} {
		data, err := pythonapp.DefaultConfigFile(name)
		if err != nil {
			return fmt.Errorf("read built-in %s: %w", name, err)
		}
		if err := scaffoldFile(absPath, name, data); err != nil {
			return err
		}
	}

	if err := scaffoldFile(absPath, config.ProjectConfigName, []byte(projectConfigTemplate)); err != nil {
		return err
	}

	if err := updateGitignore(absPath); err != nil {
		printStatus("⚠", fmt.Sprintf("Could not update .gitignore: %v", err), color.FgYellow)
	} else {
		printStatus("✓", "Updated .gitignore", color.FgGreen)
	}

	if _, source, _ := config.ResolveAPIKey(nil); source == config.KeySourceNone {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	fmt.Printf("\n%s devcrew initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit config/agents.yaml and config/tasks.yaml")
	fmt.Println("  2. Check the crew:")
	fmt.Println("     devcrew validate")
	fmt.Println("  3. Run it:")
	fmt.Println("     " + initRunExample)
	fmt.Println()
	return nil
}

// scaffoldFile writes rel under root unless it exists and --force is unset.
func scaffoldFile(root, rel string, data []byte) error {
	path := filepath.Join(root, rel)
	if _, err := os.Stat(path); err == nil && !initForce {
		printStatus("•", fmt.Sprintf("%s exists, kept", rel), color.FgHiBlack)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	printStatus("✓", "Created "+rel, color.FgGreen)
	return nil
}

// updateGitignore adds devcrew entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	entries := []string{".devcrew/"}

	var missing []string
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# devcrew\n")
	for _, entry := range missing {
		newContent.WriteString(entry + "\n")
	}

	return renameio.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// initRunExample is the run command suggested after init.
const initRunExample = `devcrew run --input project="your app idea"`

const projectConfigTemplate = `# devcrew project configuration
# Overrides ~/.config/devcrew/config.yaml for runs started in this directory.

crew:
  agents_config: config/agents.yaml
  tasks_config: config/tasks.yaml
  output_dir: .
  # retry_delay: 1s

# anthropic:
#   model: claude-sonnet-4-20250514
#   max_tokens: 8192
#   use_bedrock: false
#   aws_region: us-west-2

# timeouts:
#   run: 30m

# log:
#   level: info
`

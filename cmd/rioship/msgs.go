package rioship

import (
	"embed"
	"strings"
)

// Short messages (one-liners)
const (
	MsgRootShort       = "Build and deploy robot code to roboRIO controllers"
	MsgBuildShort      = "Assemble the project's bundles"
	MsgDeployShort     = "Build and deploy to a target"
	MsgPlanShort       = "Show what a deploy would transfer"
	MsgTargetsShort    = "List deploy targets and their addresses"
	MsgHistoryShort    = "List past deploy runs"
	MsgIdeaShort       = "Generate the IntelliJ module file"
	MsgConfigShort     = "Print the effective configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	MsgIdeaWritten   = "Wrote %s"
	MsgIdeaUnchanged = "%s is up to date"
	MsgConfigWritten = "Wrote %s\n"

	// Error messages
	MsgErrInitPaths       = "failed to initialize paths: %w"
	MsgErrBuild           = "build failed: %w"
	MsgErrDeploy          = "deploy to %s failed: %w"
	MsgErrNoProject       = "no project file at %s (use --project or RIOSHIP_PROJECT_DIR)"
	MsgErrConfigExists    = "%s already exists"
	MsgErrHistoryDisabled = "run history is disabled (history.enabled = false)"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun      = "Compute the plan without transferring anything"
	MsgFlagFormat      = "Output format: auto, term, text, json, yaml"
	MsgFlagProject     = "Project directory (default: search upward from cwd)"
	MsgFlagTeam        = "Team number, overriding the project file and preferences"
	MsgFlagDebug       = "Build and deploy the debug variant"
	MsgFlagRelease     = "Build and deploy the release variant"
	MsgFlagDeleteStale = "Delete remote files that no longer exist locally"
	MsgFlagTimeout     = "Transfer timeout for targets that do not set one"
	MsgFlagWorkers     = "Number of parallel uploads"
	MsgFlagLimit       = "Maximum number of runs to list"
	MsgFlagModuleName  = "Module name (default: project directory name)"
	MsgFlagConfigInit  = "Write a commented rioship.toml into the project"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/build-long.txt
	msgBuildLongRaw string
	MsgBuildLong    = strings.TrimSpace(msgBuildLongRaw)

	//go:embed msgs/deploy-long.txt
	msgDeployLongRaw string
	MsgDeployLong    = strings.TrimSpace(msgDeployLongRaw)

	//go:embed msgs/deploy-example.txt
	msgDeployExampleRaw string
	MsgDeployExample    = strings.TrimRight(msgDeployExampleRaw, "\n")

	//go:embed msgs/plan-long.txt
	msgPlanLongRaw string
	MsgPlanLong    = strings.TrimSpace(msgPlanLongRaw)

	//go:embed msgs/idea-long.txt
	msgIdeaLongRaw string
	MsgIdeaLong    = strings.TrimSpace(msgIdeaLongRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)

// Help topics shown by `rioship help <topic>`
//
//go:embed topics
var topicsFS embed.FS

package project

// hclProjectFile is the top-level structure of deploy.hcl for decoding.
type hclProjectFile struct {
	Bundles []*hclBundle `hcl:"bundle,block"`
	Targets []*hclTarget `hcl:"target,block"`
}

type hclBundle struct {
	Name      string            `hcl:"name,label"`
	MainEntry string            `hcl:"main_entry"`
	Output    *string           `hcl:"output,optional"`
	Manifest  map[string]string `hcl:"manifest,optional"`
	Discard   *bool             `hcl:"discard_after_deploy,optional"`
	Units     []*hclUnit        `hcl:"unit,block"`
}

type hclUnit struct {
	Name    string  `hcl:"name,label"`
	Path    string  `hcl:"path"`
	Variant *string `hcl:"variant,optional"`
}

type hclTarget struct {
	Name      string         `hcl:"name,label"`
	Address   *string        `hcl:"address,optional"`
	Team      *int           `hcl:"team,optional"`
	Debug     *bool          `hcl:"debug,optional"`
	Port      *int           `hcl:"port,optional"`
	User      *string        `hcl:"user,optional"`
	Auth      *string        `hcl:"auth,optional"`
	Password  *string        `hcl:"password,optional"`
	KeyFile   *string        `hcl:"key_file,optional"`
	Transport *string        `hcl:"transport,optional"`
	Timeout   *string        `hcl:"timeout,optional"`
	Artifacts []*hclArtifact `hcl:"artifact,block"`
}

type hclArtifact struct {
	Name           string  `hcl:"name,label"`
	Bundle         *string `hcl:"bundle,optional"`
	Files          *string `hcl:"files,optional"`
	Directory      string  `hcl:"directory"`
	DeleteOldFiles *bool   `hcl:"delete_old_files,optional"`
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

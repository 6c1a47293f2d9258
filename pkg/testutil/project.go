package testutil

import (
	"path/filepath"
	"testing"
)

// RobotProject is a minimal deploy.hcl: one bundle built from build/classes
// and a local "sim" target whose root is env.SIM_ROOT.
const RobotProject = `
bundle "robot" {
  main_entry = "frc.robot.Main"
  unit "classes" {
    path = "build/classes"
  }
}

target "sim" {
  address   = env.SIM_ROOT
  transport = "local"

  artifact "frcJava" {
    bundle    = "robot"
    directory = "/home/lvuser"
  }

  artifact "frcStaticFileDeploy" {
    files     = "src/main/deploy"
    directory = "/home/lvuser/deploy"
  }
}
`

// Project is an on-disk project fixture.
type Project struct {
	Dir     string
	SimRoot string
}

// NewProject writes deploy.hcl, one compiled class and two deploy files into
// a temp dir. SimRoot is a separate temp dir for the local transport.
func NewProject(t *testing.T, hcl string) *Project {
	t.Helper()
	p := &Project{
		Dir:     t.TempDir(),
		SimRoot: filepath.Join(t.TempDir(), "sim"),
	}
	CreateFile(t, p.Dir, "deploy.hcl", hcl)
	CreateFile(t, p.Dir, "build/classes/frc/robot/Main.class", "main")
	CreateFile(t, p.Dir, "src/main/deploy/a.txt", "a")
	CreateFile(t, p.Dir, "src/main/deploy/b/c.txt", "c")
	return p
}

// Remote maps a remote path on the sim target to its local location.
func (p *Project) Remote(remote string) string {
	return filepath.Join(p.SimRoot, filepath.FromSlash(remote))
}

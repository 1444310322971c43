package testutil

import (
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/vfs"
)

// MemoryProject builds a project rooted at root whose files live in memory.
// Keys of files are relative to root.
func MemoryProject(root string, files map[string]string) (*vfs.Memory, *config.Project) {
	fs := vfs.NewMemory()
	fs.AddDir(root)
	for name, content := range files {
		fs.AddFile(root+"/"+name, content)
	}
	return fs, config.Default(root)
}

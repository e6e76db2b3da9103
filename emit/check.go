package emit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/symprefix/symtab"
)

func errEmptyTable() error {
	return &symtab.Error{Kind: symtab.KindRender, RuleID: "SYM-RENDER-001", Message: "empty symbol table"}
}

// WriteFiles writes rendered outputs under dir, creating it if needed.
func WriteFiles(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies that the files on disk under dir are byte-identical to a
// fresh render of the table. Any missing file or drift is an error; callers
// use this in CI to catch outputs that are out of sync with the symbol list.
func Check(dir string, t *symtab.Table) error {
	files, err := Headers(t)
	if err != nil {
		return err
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		got, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &symtab.Error{
					Kind:    symtab.KindCheck,
					RuleID:  "SYM-CHECK-001",
					Message: fmt.Sprintf("%s is missing; regenerate outputs", f.Name),
				}
			}
			return err
		}
		if !bytes.Equal(got, f.Data) {
			return &symtab.Error{
				Kind:    symtab.KindCheck,
				RuleID:  "SYM-CHECK-002",
				Message: fmt.Sprintf("%s is stale; regenerate outputs", f.Name),
			}
		}
	}
	return nil
}

package taskfile

import (
	"fmt"
	"io"
)

const (
	listingHeaderConstant                 = "Available tasks:"
	listingEntryTemplateConstant          = "\t%s\n"
	listingDescribedEntryTemplateConstant = "\t%s - %s\n"
)

// WriteListing prints every task with its optional description in declaration order.
func (taskFile TaskFile) WriteListing(writer io.Writer) error {
	if _, writeError := fmt.Fprintln(writer, listingHeaderConstant); writeError != nil {
		return writeError
	}

	for _, task := range taskFile.tasks {
		var writeError error
		if description, described := task.Description(); described {
			_, writeError = fmt.Fprintf(writer, listingDescribedEntryTemplateConstant, task.Name, description)
		} else {
			_, writeError = fmt.Fprintf(writer, listingEntryTemplateConstant, task.Name)
		}
		if writeError != nil {
			return writeError
		}
	}
	return nil
}

package taskfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the task file looked up in the working directory.
	DefaultFileName = "Pilotfile.yaml"

	fileNotFoundTemplateConstant           = "%s not found: %v"
	documentInvalidTemplateConstant        = "That is not a valid Pilotfile: %v"
	structureInvalidMessageConstant        = "This is not a valid Pilotfile"
	structureInvalidTemplateConstant       = structureInvalidMessageConstant + ": %s"
	multipleDescriptionsTemplateConstant   = "More than one description for task %s"
	duplicateTaskNameTemplateConstant      = "Duplicate task %s"
	emptyDocumentDetailConstant            = "document is empty"
	rootMappingDetailConstant              = "top level must map task names to step lists"
	taskNameDetailTemplateConstant         = "task name at line %d must be a string"
	stepListDetailTemplateConstant         = "task %s must be a list of steps"
	stepMappingDetailTemplateConstant      = "step at line %d must be a mapping with exactly one key"
	stepKeyDetailTemplateConstant          = "step key at line %d must be a string"
	unknownStepKindDetailTemplateConstant  = "unknown step %q at line %d"
	stringValueDetailTemplateConstant      = "%s at line %d must be a string"
	booleanValueDetailTemplateConstant     = "%s at line %d must be a boolean"
	parallelBranchesDetailTemplateConstant = "parallel at line %d must be a list of steps"
	yamlStringTagConstant                  = "!!str"
	yamlBooleanTagConstant                 = "!!bool"
	descriptionStepCountLimitConstant      = 1
	aliasResolutionDepthLimitConstant      = 32
	aliasResolutionDetailTemplateConstant  = "alias at line %d cannot be resolved"
)

// LoadError reports that the task file could not be read or is not a YAML document.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

// Error returns the user facing load failure.
func (loadError LoadError) Error() string {
	return loadError.Message
}

// Unwrap exposes the underlying read or parse failure.
func (loadError LoadError) Unwrap() error {
	return loadError.Cause
}

// ValidationError reports a structurally invalid task file.
type ValidationError struct {
	Detail string
}

// Error describes the structural problem.
func (validationError ValidationError) Error() string {
	if len(validationError.Detail) == 0 {
		return structureInvalidMessageConstant
	}
	return fmt.Sprintf(structureInvalidTemplateConstant, validationError.Detail)
}

// MultipleDescriptionsError reports a task that declares more than one description.
type MultipleDescriptionsError struct {
	TaskName string
}

// Error describes the offending task.
func (descriptionError MultipleDescriptionsError) Error() string {
	return fmt.Sprintf(multipleDescriptionsTemplateConstant, descriptionError.TaskName)
}

// DuplicateTaskNameError reports a task name declared more than once.
type DuplicateTaskNameError struct {
	TaskName string
}

// Error describes the duplicated task.
func (duplicateError DuplicateTaskNameError) Error() string {
	return fmt.Sprintf(duplicateTaskNameTemplateConstant, duplicateError.TaskName)
}

// Load reads and validates the task file at the provided path.
func Load(filePath string) (TaskFile, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		trimmedPath = DefaultFileName
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return TaskFile{}, LoadError{
			Path:    trimmedPath,
			Message: fmt.Sprintf(fileNotFoundTemplateConstant, filepath.Base(trimmedPath), readError),
			Cause:   readError,
		}
	}

	taskFile, parseError := Parse(contentBytes)
	if parseError != nil {
		var loadError LoadError
		if errors.As(parseError, &loadError) {
			loadError.Path = trimmedPath
			return TaskFile{}, loadError
		}
		return TaskFile{}, parseError
	}
	return taskFile, nil
}

// Parse decodes task file content, keeping task and step order as written.
func Parse(contentBytes []byte) (TaskFile, error) {
	var document yaml.Node
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return TaskFile{}, LoadError{
			Message: fmt.Sprintf(documentInvalidTemplateConstant, unmarshalError),
			Cause:   unmarshalError,
		}
	}

	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		return TaskFile{}, ValidationError{Detail: emptyDocumentDetailConstant}
	}

	rootNode, rootError := resolveAlias(document.Content[0])
	if rootError != nil {
		return TaskFile{}, rootError
	}
	if rootNode.Kind != yaml.MappingNode {
		return TaskFile{}, ValidationError{Detail: rootMappingDetailConstant}
	}

	tasks := make([]Task, 0, len(rootNode.Content)/2)
	seenTaskNames := make(map[string]struct{}, len(rootNode.Content)/2)
	for keyIndex := 0; keyIndex+1 < len(rootNode.Content); keyIndex += 2 {
		keyNode := rootNode.Content[keyIndex]
		if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != yamlStringTagConstant {
			return TaskFile{}, ValidationError{Detail: fmt.Sprintf(taskNameDetailTemplateConstant, keyNode.Line)}
		}
		taskName := keyNode.Value

		if _, exists := seenTaskNames[taskName]; exists {
			return TaskFile{}, DuplicateTaskNameError{TaskName: taskName}
		}
		seenTaskNames[taskName] = struct{}{}

		task, taskError := parseTask(taskName, rootNode.Content[keyIndex+1])
		if taskError != nil {
			return TaskFile{}, taskError
		}
		tasks = append(tasks, task)
	}

	return NewTaskFile(tasks), nil
}

func parseTask(taskName string, valueNode *yaml.Node) (Task, error) {
	resolvedNode, aliasError := resolveAlias(valueNode)
	if aliasError != nil {
		return Task{}, aliasError
	}
	if resolvedNode.Kind != yaml.SequenceNode {
		return Task{}, ValidationError{Detail: fmt.Sprintf(stepListDetailTemplateConstant, taskName)}
	}

	steps := make([]Step, 0, len(resolvedNode.Content))
	descriptionCount := 0
	for _, itemNode := range resolvedNode.Content {
		step, stepError := parseStep(itemNode)
		if stepError != nil {
			return Task{}, stepError
		}
		if step.Kind == StepKindDescription {
			descriptionCount++
			if descriptionCount > descriptionStepCountLimitConstant {
				return Task{}, MultipleDescriptionsError{TaskName: taskName}
			}
		}
		steps = append(steps, step)
	}

	return Task{Name: taskName, Steps: steps}, nil
}

func parseStep(itemNode *yaml.Node) (Step, error) {
	resolvedNode, aliasError := resolveAlias(itemNode)
	if aliasError != nil {
		return Step{}, aliasError
	}
	if resolvedNode.Kind != yaml.MappingNode || len(resolvedNode.Content) != 2 {
		return Step{}, ValidationError{Detail: fmt.Sprintf(stepMappingDetailTemplateConstant, resolvedNode.Line)}
	}

	keyNode := resolvedNode.Content[0]
	if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != yamlStringTagConstant {
		return Step{}, ValidationError{Detail: fmt.Sprintf(stepKeyDetailTemplateConstant, keyNode.Line)}
	}

	valueNode, valueAliasError := resolveAlias(resolvedNode.Content[1])
	if valueAliasError != nil {
		return Step{}, valueAliasError
	}

	stepKind := StepKind(keyNode.Value)
	switch stepKind {
	case StepKindShell:
		command, commandError := stringValue(stepKind, valueNode)
		if commandError != nil {
			return Step{}, commandError
		}
		return Step{Kind: stepKind, Command: command}, nil
	case StepKindTask:
		taskName, taskNameError := stringValue(stepKind, valueNode)
		if taskNameError != nil {
			return Step{}, taskNameError
		}
		return Step{Kind: stepKind, TaskName: taskName}, nil
	case StepKindDescription:
		description, descriptionError := stringValue(stepKind, valueNode)
		if descriptionError != nil {
			return Step{}, descriptionError
		}
		return Step{Kind: stepKind, Description: description}, nil
	case StepKindRaw:
		if valueNode.Kind != yaml.ScalarNode || valueNode.ShortTag() != yamlBooleanTagConstant {
			return Step{}, ValidationError{Detail: fmt.Sprintf(booleanValueDetailTemplateConstant, stepKind, valueNode.Line)}
		}
		var rawValue bool
		if decodeError := valueNode.Decode(&rawValue); decodeError != nil {
			return Step{}, ValidationError{Detail: fmt.Sprintf(booleanValueDetailTemplateConstant, stepKind, valueNode.Line)}
		}
		return Step{Kind: stepKind, Raw: rawValue}, nil
	case StepKindParallel:
		branches, branchesError := parseBranches(valueNode)
		if branchesError != nil {
			return Step{}, branchesError
		}
		return Step{Kind: stepKind, Branches: branches}, nil
	default:
		return Step{}, ValidationError{Detail: fmt.Sprintf(unknownStepKindDetailTemplateConstant, keyNode.Value, keyNode.Line)}
	}
}

func parseBranches(valueNode *yaml.Node) ([]Branch, error) {
	if valueNode.Kind != yaml.SequenceNode {
		return nil, ValidationError{Detail: fmt.Sprintf(parallelBranchesDetailTemplateConstant, valueNode.Line)}
	}

	branches := make([]Branch, 0, len(valueNode.Content))
	for _, branchNode := range valueNode.Content {
		branchStep, branchError := parseStep(branchNode)
		if branchError != nil {
			return nil, branchError
		}
		branches = append(branches, Branch{Label: string(branchStep.Kind), Step: branchStep})
	}
	return branches, nil
}

func stringValue(stepKind StepKind, valueNode *yaml.Node) (string, error) {
	if valueNode.Kind != yaml.ScalarNode || valueNode.ShortTag() != yamlStringTagConstant {
		return "", ValidationError{Detail: fmt.Sprintf(stringValueDetailTemplateConstant, stepKind, valueNode.Line)}
	}
	return valueNode.Value, nil
}

func resolveAlias(node *yaml.Node) (*yaml.Node, error) {
	if node == nil {
		return nil, ValidationError{}
	}
	resolved := node
	for depth := 0; resolved.Kind == yaml.AliasNode; depth++ {
		if resolved.Alias == nil || depth >= aliasResolutionDepthLimitConstant {
			return nil, ValidationError{Detail: fmt.Sprintf(aliasResolutionDetailTemplateConstant, node.Line)}
		}
		resolved = resolved.Alias
	}
	return resolved, nil
}

package pipeline

import (
	"fmt"

	"analystagent/sandbox"
)

// promptTemplate frames every generated script: all file traffic goes
// through the workspace mount, stdout carries a single-line JSON signal.
const promptTemplate = `You are an expert Python data scientist. Your task is to write a Python script to perform a specific task.
All file operations must use the '%s/' directory.

Context from previous steps:
%s

Your current task:
'%s'

Write only the Python code for this task. Do not use markdown.
Your script's final output to stdout should be a single-line JSON string describing the result.`

func buildPrompt(task, context string) string {
	return fmt.Sprintf(promptTemplate, sandbox.MountPath, context, task)
}

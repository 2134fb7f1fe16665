package strategy

import "fmt"

const systemPrompt = `You are a migration planner. You produce concrete, ordered migration
plans for upgrading a repository from its 0.x release line to the 1.x API.
Plans list the files to change, the API renames and behavioral changes to
apply, and the order in which to apply them. Output only the plan in
markdown; no preamble.`

const promptTemplate = `Repository: %s

Below is a bounded selection of the repository's files. Plan the migration
of this repository from its 0.x release line to 1.x.

%s

Instructions:
1. Identify every usage of deprecated or renamed 0.x APIs.
2. List the required changes file by file, most impactful first.
3. Call out breaking behavioral changes that need manual review.
4. Keep the plan actionable by an automated coding agent.
`

const emptyContextNote = `(no repository files were available; produce a generic 0.x to 1.x
migration checklist for this repository)`

// BuildPrompt constructs the strategy prompt for a repository. An empty
// context is valid input; the prompt degrades to a generic checklist
// request rather than failing.
func BuildPrompt(repoName, contextText string) string {
	if contextText == "" {
		contextText = emptyContextNote
	}
	return fmt.Sprintf(promptTemplate, repoName, contextText)
}

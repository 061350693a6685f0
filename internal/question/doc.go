// Package question implements the file-based blocking-question protocol.
//
// A blocked agent writes a question file (q-NNN.md) into the questions
// directory and exits with the blocked code. Whoever resolves it writes a
// correlated response file (q-NNN.response); the presence of that file is
// the only signal that the question has been answered. Question files are
// never modified after they are written and responses are write-once.
//
// # File Format
//
//	# Question from: dev-frontend
//
//	## For: tech_lead
//
//	## Context
//
//	Working on ticket #3.
//
//	## Question
//
//	Should sessions expire after 30 minutes?
//
//	## Options
//
//	Yes
//	No
//
// Headers are matched case-insensitively by keyword. Unknown sections are
// skipped and a missing or unrecognized recipient falls back to the user,
// so a malformed file never prevents a human from unblocking the run.
package question

// Package planner turns model completions into tool requests and builds the
// prompts for the plan and respond stages.
package planner

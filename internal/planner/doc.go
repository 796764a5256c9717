// Package planner decides where a missing note should be created and what
// it should initially contain, and creates notes one at a time for a batch
// of dead references.
package planner

// Package automation calls the external automation webhook that executes
// side-effecting actions (sending email, etc.) on the relay's behalf.
package automation

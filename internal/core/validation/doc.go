// Package validation scores project configurations and live deployments.
//
// This is part of the Functional Core: every readiness check is a pure
// function of the project configuration. Scoring is table-driven - each
// category owns a baseline score, a threshold pair and a list of rules,
// and every rule deducts independently. Categories are orthogonal on
// purpose: a missing build command says nothing about security, and
// independent scores give the caller precise, additive feedback instead
// of one opaque number.
//
// Post-deploy validation inspects a live URL through the Probe
// collaborator; the probe does the I/O, this package does the scoring.
package validation

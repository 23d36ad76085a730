// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"os"
)

// Component is an enumeration representing the "components" which can be logged against. A Level can be
// configured on a per-component basis.
type Component int

const (
	// ComponentAll enables logging for all components.
	ComponentAll Component = iota

	// ComponentBulk logs the lifecycle of bulk operations: appends, batch plans and results.
	ComponentBulk

	// ComponentCommand logs every write command sent to the transport.
	ComponentCommand
)

func (c Component) String() string {
	switch c {
	case ComponentBulk:
		return "bulk"
	case ComponentCommand:
		return "command"
	}
	return "all"
}

// ParseComponent returns the Component with the given name. Unknown names parse as ComponentAll.
func ParseComponent(name string) Component {
	switch name {
	case "bulk":
		return ComponentBulk
	case "command":
		return ComponentCommand
	}
	return ComponentAll
}

// componentEnvVar is an environment variable which can be used to configure a component's log level.
type componentEnvVar string

const (
	componentEnvVarAll     componentEnvVar = "BULKWRITE_LOG_ALL"
	componentEnvVarBulk    componentEnvVar = "BULKWRITE_LOG_BULK"
	componentEnvVarCommand componentEnvVar = "BULKWRITE_LOG_COMMAND"
)

var allComponentEnvVars = []componentEnvVar{
	componentEnvVarAll,
	componentEnvVarBulk,
	componentEnvVarCommand,
}

func (env componentEnvVar) component() Component {
	switch env {
	case componentEnvVarBulk:
		return ComponentBulk
	case componentEnvVarCommand:
		return ComponentCommand
	}
	return ComponentAll
}

// getEnvComponentLevels returns the component levels set in the environment. A level set with
// BULKWRITE_LOG_ALL applies to every component that has no level of its own.
func getEnvComponentLevels() map[Component]Level {
	levels := make(map[Component]Level)

	var all Level
	for _, env := range allComponentEnvVars {
		val, ok := os.LookupEnv(string(env))
		if !ok {
			continue
		}
		level := ParseLevel(val)
		if env == componentEnvVarAll {
			all = level
			continue
		}
		levels[env.component()] = level
	}

	if all != LevelOff {
		for _, c := range []Component{ComponentBulk, ComponentCommand} {
			if _, ok := levels[c]; !ok {
				levels[c] = all
			}
		}
	}

	return levels
}

// mergeComponentLevels merges the given maps; later maps take precedence. A ComponentAll entry
// is expanded to every component.
func mergeComponentLevels(componentLevels ...map[Component]Level) map[Component]Level {
	merged := make(map[Component]Level)
	for _, levels := range componentLevels {
		if all, ok := levels[ComponentAll]; ok {
			merged[ComponentBulk] = all
			merged[ComponentCommand] = all
		}
		for c, l := range levels {
			if c != ComponentAll {
				merged[c] = l
			}
		}
	}

	return merged
}

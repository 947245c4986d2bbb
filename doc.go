// Copyright 2026 The Jvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package jvisor provisions and controls throwaway Jenkins instances for
// use by test automation.
//
// Each instance is known by an alias.  The Manager keeps a working tree
// per alias, laid out as follows:
//
//	<workdir>/<alias>/jenkins.war
//	<workdir>/<alias>/.home/plugins/<plugin>.hpi
//
// Remote archives are first downloaded into a cache directory shared by
// all aliases, and then copied into the alias tree.  Starting an instance
// spawns "java -jar jenkins.war" with JENKINS_HOME pointing at the alias
// home directory, and polls the instance's root URL until it answers.
// Stopping an instance posts to its /exit endpoint, and polls until the
// instance no longer accepts connections.
//
// The Manager may be exposed over HTTP using the rest package, so that
// test frameworks written in other languages can drive it.
//
package jvisor

//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package main

import (
	"github.com/sassoftware/apkchannel/cmdline/shared"
	"github.com/sassoftware/apkchannel/config"

	_ "github.com/sassoftware/apkchannel/cmdline/channelcmd"
)

var (
	version = "unknown" // set this at link time
	commit  = "unknown" // set this at link time
)

func main() {
	config.SetVersion(version, commit)
	shared.Main()
}

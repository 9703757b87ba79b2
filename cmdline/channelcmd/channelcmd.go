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

// Package channelcmd implements the read, write and inspect commands
package channelcmd

import (
	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/cmdline/shared"

	// schemes register themselves
	_ "github.com/sassoftware/apkchannel/channel/comment"
	_ "github.com/sassoftware/apkchannel/channel/filename"
	_ "github.com/sassoftware/apkchannel/channel/sigblock"
)

func currentOptions() channel.Options {
	if shared.CurrentConfig == nil {
		return channel.Options{}
	}
	return shared.CurrentConfig.Options()
}

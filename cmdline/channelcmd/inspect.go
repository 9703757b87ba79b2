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

package channelcmd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/avast/apkparser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/cmdline/shared"
	"github.com/sassoftware/apkchannel/lib/binpatch"
	"github.com/sassoftware/apkchannel/lib/magic"
	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the zip and signing block structures that carry channels",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectCmd,
}

var (
	argYAML     bool
	argManifest bool
)

func init() {
	shared.RootCmd.AddCommand(InspectCmd)
	InspectCmd.Flags().BoolVar(&argYAML, "yaml", false, "Print the report as YAML")
	InspectCmd.Flags().BoolVar(&argManifest, "manifest", false, "Decode and print AndroidManifest.xml")
}

// Well known signing block pair IDs
var pairNames = map[uint32]string{
	0x7109871a:    "signature scheme v2",
	0xf05368c0:    "signature scheme v3",
	0x1b93ad61:    "signature scheme v3.1",
	0x42726577:    "verity padding",
	0x6dff800d:    "source stamp",
	0x504b4453:    "dependency info",
	channel.Magic: "channel",
}

type Report struct {
	Path         string            `yaml:"path"`
	Type         string            `yaml:"type"`
	Size         int64             `yaml:"size"`
	EndRecord    *EndRecordInfo    `yaml:"end_record,omitempty"`
	SigningBlock *SigningBlockInfo `yaml:"signing_block,omitempty"`
	Channels     map[string]string `yaml:"channels,omitempty"`
	Errors       map[string]string `yaml:"errors,omitempty"`
	Manifest     string            `yaml:"manifest,omitempty"`
}

type EndRecordInfo struct {
	Offset        int64 `yaml:"offset"`
	Entries       int   `yaml:"entries"`
	CDOffset      int64 `yaml:"cd_offset"`
	CDSize        int64 `yaml:"cd_size"`
	CommentLength int   `yaml:"comment_length"`
	Zip64         bool  `yaml:"zip64,omitempty"`
}

type SigningBlockInfo struct {
	Offset int64      `yaml:"offset"`
	Size   uint64     `yaml:"size"`
	Pairs  []PairInfo `yaml:"pairs"`
}

type PairInfo struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	Length int    `yaml:"length"`
}

func inspectFile(path string, opts channel.Options, withManifest bool) (*Report, error) {
	f, size, err := binpatch.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	report := &Report{
		Path: path,
		Type: magic.Detect(io.NewSectionReader(f, 0, size)).String(),
		Size: size,
	}
	end, err := zipslicer.FindEndRecord(f, size)
	if err != nil {
		return nil, err
	} else if end == nil {
		return report, nil
	}
	report.EndRecord = &EndRecordInfo{
		Offset:        end.Offset,
		Entries:       end.EntryCount(),
		CDOffset:      end.CDOffset(),
		CDSize:        end.CDSize(),
		CommentLength: end.CommentLength(),
		Zip64:         end.IsZip64(f),
	}
	block, err := zipslicer.FindSigningBlock(f, size, end.CDOffset())
	if err != nil {
		report.addError("signing_block", err)
	} else if block != nil {
		info := &SigningBlockInfo{Offset: block.Offset, Size: block.Size()}
		err := block.Walk(func(_ int, p zipslicer.Pair) bool {
			info.Pairs = append(info.Pairs, PairInfo{
				ID:     fmt.Sprintf("0x%08x", p.ID),
				Name:   pairNames[p.ID],
				Length: len(p.Value),
			})
			return true
		})
		if err != nil {
			report.addError("signing_block", err)
		}
		report.SigningBlock = info
	}
	for _, s := range channel.All() {
		value, ok, err := s.Decode(path, opts)
		if err != nil {
			report.addError(s.Name, err)
		} else if ok {
			if report.Channels == nil {
				report.Channels = make(map[string]string)
			}
			report.Channels[s.Name] = value
		}
	}
	if withManifest {
		manifest, err := decodeManifest(path)
		if err != nil {
			report.addError("manifest", err)
		}
		report.Manifest = manifest
	}
	return report, nil
}

func (r *Report) addError(key string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[key] = err.Error()
}

// decodeManifest renders the binary AndroidManifest.xml as text
func decodeManifest(path string) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	zipErr, resErr, manErr := apkparser.ParseApk(path, enc)
	if zipErr != nil {
		return "", zipErr
	}
	if resErr != nil {
		log.Debug().Err(resErr).Str("path", path).Msg("resources.arsc could not be parsed; references are left unresolved")
	}
	if manErr != nil {
		return "", manErr
	}
	return buf.String(), nil
}

func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "%s: %s, %d bytes\n", r.Path, r.Type, r.Size)
	if e := r.EndRecord; e != nil {
		fmt.Fprintf(w, "  end record:    offset %d, %d entries, comment %d bytes\n", e.Offset, e.Entries, e.CommentLength)
		fmt.Fprintf(w, "  central dir:   offset %d, %d bytes\n", e.CDOffset, e.CDSize)
		if e.Zip64 {
			fmt.Fprintln(w, "  zip64:         yes")
		}
	} else {
		fmt.Fprintln(w, "  end record:    not found")
	}
	if b := r.SigningBlock; b != nil {
		fmt.Fprintf(w, "  signing block: offset %d, %d bytes\n", b.Offset, b.Size)
		for _, p := range b.Pairs {
			name := p.Name
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(w, "    pair %s (%s): %d bytes\n", p.ID, name, p.Length)
		}
	}
	for _, s := range channel.All() {
		if v, ok := r.Channels[s.Name]; ok {
			fmt.Fprintf(w, "  channel (%s): %s\n", s.Name, v)
		}
		if msg, ok := r.Errors[s.Name]; ok {
			fmt.Fprintf(w, "  channel (%s): ERROR: %s\n", s.Name, msg)
		}
	}
	for _, key := range []string{"signing_block", "manifest"} {
		if msg, ok := r.Errors[key]; ok {
			fmt.Fprintf(w, "  %s: ERROR: %s\n", key, msg)
		}
	}
	if r.Manifest != "" {
		fmt.Fprintln(w, r.Manifest)
	}
}

func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func inspectCmd(cmd *cobra.Command, args []string) error {
	report, err := inspectFile(args[0], currentOptions(), argManifest)
	if err != nil {
		return shared.Fail(err)
	}
	if argYAML {
		return shared.Fail(report.WriteYAML(cmd.OutOrStdout()))
	}
	report.WriteText(cmd.OutOrStdout())
	return nil
}

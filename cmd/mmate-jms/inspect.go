package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glimte/mmate-jms-go/internal/mqrfh2"
)

type wireDump struct {
	Prefix  *prefixView  `json:"prefix,omitempty"`
	Folders []folderView `json:"folders,omitempty"`
	Payload string       `json:"payload"`
}

type prefixView struct {
	StrucID        string `json:"struc_id"`
	Version        int32  `json:"version"`
	Length         int32  `json:"length"`
	Encoding       int32  `json:"encoding"`
	CodedCharSetID int32  `json:"ccsid"`
	Format         string `json:"format"`
	Flags          int32  `json:"flags"`
	NameValueCCSID int32  `json:"name_value_ccsid"`
}

type folderView struct {
	Name       string        `json:"name"`
	Recognised bool          `json:"recognised"`
	Elements   []elementView `json:"elements"`
}

type elementView struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Nil   bool   `json:"nil,omitempty"`
}

// decodeDump splits a message body into its RFH2 header and payload. Bodies
// without a header are reported as a bare payload.
func decodeDump(data []byte, needsMCD bool) (*wireDump, error) {
	if !bytes.HasPrefix(data, []byte(mqrfh2.StrucID)) {
		return &wireDump{Payload: string(data)}, nil
	}

	h, err := mqrfh2.Parse(data)
	if err != nil {
		return nil, err
	}

	p := h.Prefix
	d := &wireDump{
		Prefix: &prefixView{
			StrucID:        p.StrucID,
			Version:        p.Version,
			Length:         p.Length,
			Encoding:       p.Encoding,
			CodedCharSetID: p.CodedCharSetID,
			Format:         p.Format,
			Flags:          p.Flags,
			NameValueCCSID: p.NameValueCCSID,
		},
		Payload: string(h.Payload),
	}
	for _, f := range h.Folders {
		fv := folderView{Name: f.Name}
		switch f.Name {
		case mqrfh2.FolderJMS, mqrfh2.FolderUSR:
			fv.Recognised = true
		case mqrfh2.FolderMCD:
			fv.Recognised = needsMCD
		}
		for _, e := range f.Elements {
			fv.Elements = append(fv.Elements, elementView{Name: e.Name, Value: e.Value, Nil: e.Nil})
		}
		d.Folders = append(d.Folders, fv)
	}
	return d, nil
}

// readDump reads a raw or hex encoded dump. Whitespace in hex input is
// ignored.
func readDump(r io.Reader, hexInput bool) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !hexInput {
		return data, nil
	}
	decoded, err := hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
	if err != nil {
		return nil, fmt.Errorf("decode hex dump: %w", err)
	}
	return decoded, nil
}

func newInspectCommand(opts *globalOptions) *cobra.Command {
	var (
		hexInput bool
		needsMCD bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Decode an RFH2 message dump",
		Long: `Decode a captured message body: the RFH2 prefix, every name/value folder
and the payload. Reads stdin when no file is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			data, err := readDump(in, hexInput)
			if err != nil {
				return err
			}
			d, err := decodeDump(data, needsMCD)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			return opts.output(cmd).dump(d)
		},
	}
	cmd.Flags().BoolVarP(&hexInput, "hex", "x", false, "input is a hex dump")
	cmd.Flags().BoolVar(&needsMCD, "mcd", true, "treat the mcd folder as recognised")
	return cmd
}

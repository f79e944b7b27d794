// Copyright 2024 BVFS Authors
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

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bvfs/internal/bvfs"
)

var (
	lsJobs   string
	lsPwd    int64
	lsPatt   string
	lsLimit  int
	lsOffset int
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List catalog-projected directories, files, or versions",
}

var lsDirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List the child directories of the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newListSession()
		if err != nil {
			return err
		}
		hasMore, err := bvfs.LsDirs(cmd.Context(), sess, func(row bvfs.DirRow) bool {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%d\n", row.Type, row.PathId, row.Path, row.JobId)
			return false
		})
		if err != nil {
			return err
		}
		if hasMore {
			fmt.Fprintln(cmd.OutOrStdout(), "... (more rows available, raise --limit or --offset)")
		}
		return nil
	},
}

var lsFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files directly under the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newListSession()
		if err != nil {
			return err
		}
		hasMore, err := bvfs.LsFiles(cmd.Context(), sess, func(row bvfs.FileRow) bool {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%d\t%d\n", row.Type, row.PathId, row.Name, row.JobId, row.FileId)
			return false
		})
		if err != nil {
			return err
		}
		if hasMore {
			fmt.Fprintln(cmd.OutOrStdout(), "... (more rows available, raise --limit or --offset)")
		}
		return nil
	},
}

var (
	versionsPathID int64
	versionsName   string
	versionsClient string
	seeCopies      bool
	seeAllVersions bool
)

var lsVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List every catalogued version of one (path, name) for a client",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newListSession()
		if err != nil {
			return err
		}
		sess.SeeCopies = seeCopies
		sess.SeeAllVersions = seeAllVersions

		hasMore, err := bvfs.GetAllFileVersions(cmd.Context(), sess, versionsPathID, versionsName, versionsClient,
			func(row bvfs.VersionRow) bool {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%d\n", row.JobId, row.FileId, row.JobTDate)
				return false
			})
		if err != nil {
			return err
		}
		if hasMore {
			fmt.Fprintln(cmd.OutOrStdout(), "... (more rows available, raise --limit or --offset)")
		}
		return nil
	},
}

func newListSession() (*bvfs.Session, error) {
	sess := bvfs.NewSession(cat)
	if err := sess.SetJobIds(lsJobs); err != nil {
		return nil, err
	}
	sess.ChDir(lsPwd)
	sess.Pattern = lsPatt
	switch {
	case lsLimit > 0:
		sess.Limit = lsLimit
	case cfg != nil && cfg.DefaultLimit > 0:
		sess.Limit = cfg.DefaultLimit
	}
	sess.Offset = lsOffset
	return sess, nil
}

func init() {
	lsCmd.PersistentFlags().StringVar(&lsJobs, "jobs", "", "comma-separated job id list to scope the listing to")
	lsCmd.PersistentFlags().Int64Var(&lsPwd, "pwd", 0, "current directory PathId")
	lsCmd.PersistentFlags().StringVar(&lsPatt, "pattern", "", "SQL LIKE pattern to filter file names")
	lsCmd.PersistentFlags().IntVar(&lsLimit, "limit", 0, "pagination limit (0 = session default)")
	lsCmd.PersistentFlags().IntVar(&lsOffset, "offset", 0, "pagination offset")

	lsVersionsCmd.Flags().Int64Var(&versionsPathID, "path-id", 0, "PathId of the file's parent directory")
	lsVersionsCmd.Flags().StringVar(&versionsName, "name", "", "file name")
	lsVersionsCmd.Flags().StringVar(&versionsClient, "client", "", "client name")
	lsVersionsCmd.Flags().BoolVar(&seeCopies, "see-copies", false, "include Copy-type jobs")
	lsVersionsCmd.Flags().BoolVar(&seeAllVersions, "see-all-versions", false, "include versions superseded by a later job")

	lsCmd.AddCommand(lsDirsCmd, lsFilesCmd, lsVersionsCmd)
	rootCmd.AddCommand(lsCmd)
}

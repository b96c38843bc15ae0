package main

import (
	"fmt"

	"github.com/ComputerScienceHouse/packet/internal/packetapi"

	"github.com/spf13/cobra"
)

var syncLDAPCmd = &cobra.Command{
	Use:   "sync-ldap",
	Short: "Ask the packet server to resync freshmen and upperclassmen from LDAP",
	Args:  cobra.NoArgs,
	RunE:  runSyncLDAP,
}

func runSyncLDAP(cmd *cobra.Command, args []string) error {
	resp, err := packetapi.NewClient(cfg.PacketAPI).SyncLDAP(cmd.Context())
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("ldap sync returned status %d: %s", resp.StatusCode, resp.Body)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "LDAP sync complete")
	return nil
}

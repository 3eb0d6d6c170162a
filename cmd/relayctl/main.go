// Command relayctl is a thin gRPC client for the relay's RelayService: it
// opens and closes sessions, the same two RPCs a host agent calls before and
// after driving a session's Channel stream (spec.md §4.8).
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ashureev/shsh-relay/internal/relaypb"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Open and close relay sessions",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "localhost:9051", "relay gRPC address")

	root.AddCommand(openCmd(&addr), closeCmd(&addr))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func openCmd(addr *string) *cobra.Command {
	var name, origin, writePassword string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Register a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := dial(*addr)
			if err != nil {
				return fmt.Errorf("relayctl: dial %s: %w", *addr, err)
			}
			defer cc.Close()

			zeros := make([]byte, 32)
			if _, err := rand.Read(zeros); err != nil {
				return fmt.Errorf("relayctl: generate encryption key: %w", err)
			}

			req := &relaypb.OpenRequest{
				Origin:         origin,
				EncryptedZeros: zeros,
				Name:           name,
			}
			if writePassword != "" {
				sum := sha256.Sum256([]byte(writePassword))
				req.WritePasswordHash = sum[:]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client := relaypb.NewRelayServiceClient(cc)
			resp, err := client.Open(ctx, req)
			if err != nil {
				return fmt.Errorf("relayctl: open: %w", err)
			}

			fmt.Printf("name:  %s\n", resp.Name)
			fmt.Printf("url:   %s\n", resp.URL)
			fmt.Printf("token: %s\n", resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "requested session name (auto-generated if empty)")
	cmd.Flags().StringVar(&origin, "origin", "", "public origin to build the shareable URL from")
	cmd.Flags().StringVar(&writePassword, "write-password", "", "if set, viewers must supply this to gain write access")
	return cmd
}

func closeCmd(addr *string) *cobra.Command {
	var name, token string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Terminate a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := dial(*addr)
			if err != nil {
				return fmt.Errorf("relayctl: dial %s: %w", *addr, err)
			}
			defer cc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client := relaypb.NewRelayServiceClient(cc)
			if _, err := client.Close(ctx, &relaypb.CloseRequest{Name: name, Token: token}); err != nil {
				return fmt.Errorf("relayctl: close: %w", err)
			}
			fmt.Println("closed:", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "session name")
	cmd.Flags().StringVar(&token, "token", "", "token returned by open")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("token")
	return cmd
}

// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/efchatnet/ghostnet/backend/conversation"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	nickStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
)

func boundedInt(name string, n, lo, hi int) error {
	if n < lo || n > hi {
		return fmt.Errorf("Invalid --%s: must be %d-%d", name, lo, hi)
	}
	return nil
}

type createCommand struct {
	app *app

	Name string `long:"name" default:"unnamed" description:"Room name"`
	TTL  int    `long:"ttl" default:"1" description:"Room lifetime in hours (1-720)"`
	Nick string `long:"nick" default:"anon" description:"Creator nick"`
	Pass string `long:"pass" description:"Room passphrase; checked here, shared out of band"`
}

func (c *createCommand) Execute(args []string) error {
	if err := boundedInt("ttl", c.TTL, conversation.MinTTLHours, conversation.MaxTTLHours); err != nil {
		return err
	}
	if c.Pass == "" {
		return errors.New("Need --pass")
	}

	return c.app.withService(func(ctx context.Context, svc *conversation.Service) error {
		room, err := svc.CreateRoom(ctx, c.Name, c.TTL, c.Nick)
		if err != nil {
			return userError(err)
		}

		out := c.app.out
		fmt.Fprintln(out, titleStyle.Render("Room created: "+room.Name))
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("roomId:"), room.RoomID)
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("entity:"), room.EntityKey)
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("tx:    "), room.Confirmation)
		fmt.Fprintf(out, "  %s %dh\n", labelStyle.Render("TTL:   "), room.TTLHours)
		fmt.Fprintf(out, "\nShare: --room=%s\n", room.RoomID)
		fmt.Fprintln(out, hintStyle.Render("(share passphrase separately via secure channel)"))
		return nil
	})
}

type sendCommand struct {
	app *app

	Room string `long:"room" description:"Room id"`
	Pass string `long:"pass" description:"Room passphrase"`
	Nick string `long:"nick" default:"anon" description:"Nick to send as"`
	Msg  string `long:"msg" description:"Message text"`
}

func (c *sendCommand) Execute(args []string) error {
	if c.Room == "" || c.Pass == "" || c.Msg == "" {
		return errors.New("Need --room, --pass, --msg")
	}

	return c.app.withService(func(ctx context.Context, svc *conversation.Service) error {
		msg, err := svc.SendToRoom(ctx, c.Room, c.Nick, c.Msg, c.Pass)
		if err != nil {
			return userError(err)
		}

		out := c.app.out
		fmt.Fprintf(out, "Sent as %s: %s\n", nickStyle.Render(msg.Nick), msg.Text)
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("entity:"), msg.EntityKey)
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("tx:    "), msg.Confirmation)
		return nil
	})
}

type readCommand struct {
	app *app

	Room  string `long:"room" description:"Room id"`
	Pass  string `long:"pass" description:"Room passphrase"`
	Limit int    `long:"limit" default:"100" description:"Most messages to fetch (1-100)"`
}

func (c *readCommand) Execute(args []string) error {
	if err := boundedInt("limit", c.Limit, 1, conversation.MaxLimit); err != nil {
		return err
	}
	if c.Room == "" || c.Pass == "" {
		return errors.New("Need --room, --pass")
	}

	return c.app.withService(func(ctx context.Context, svc *conversation.Service) error {
		room, err := svc.GetRoom(ctx, c.Room)
		if err != nil {
			return userError(err)
		}

		out := c.app.out
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Room: %s (TTL: %dh, by %s)", room.Name, room.TTLHours, room.CreatedBy)))

		msgs, err := svc.ReadMessages(ctx, c.Room, c.Pass, c.Limit)
		if err != nil {
			return userError(err)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages (or wrong passphrase).")
			return nil
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "[%s] %s: %s\n",
				m.Timestamp.Local().Format("15:04:05"), nickStyle.Render(m.Nick), m.Text)
		}
		return nil
	})
}

type roomsCommand struct {
	app *app

	Limit int `long:"limit" default:"20" description:"Most rooms to list (1-100)"`
}

func (c *roomsCommand) Execute(args []string) error {
	if err := boundedInt("limit", c.Limit, 1, conversation.MaxLimit); err != nil {
		return err
	}

	return c.app.withService(func(ctx context.Context, svc *conversation.Service) error {
		rooms, err := svc.ListRooms(ctx, c.Limit)
		if err != nil {
			return userError(err)
		}

		out := c.app.out
		if len(rooms) == 0 {
			fmt.Fprintln(out, "No active rooms.")
			return nil
		}

		rows := make([][]string, 0, len(rooms))
		for _, r := range rooms {
			rows = append(rows, []string{
				r.RoomID,
				r.Name,
				r.CreatedBy,
				strconv.Itoa(r.TTLHours) + "h",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("roomId", "name", "by", "ttl", "created").
			Rows(rows...)
		fmt.Fprintln(out, t.Render())
		return nil
	})
}

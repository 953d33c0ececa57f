// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package elicitation models a server's mid-stream request for structured
// user input and the form state used to answer it.
//
// A Request arrives in an "elicitation" frame and carries a flat JSON schema
// of primitive properties. NewForm seeds one string value per property; the
// reserved "chatId" property is pre-filled with the chat the request belongs
// to. Boolean properties take one of the tri-state tokens accept, decline or
// cancel (true and false are accepted as well).
//
//	req, err := elicitation.ParseRequest(frame.Data)
//	form := elicitation.NewForm(req, chatID)
//	form.SetField("confirm", elicitation.Accept)
//	if form.CanSubmit() {
//	    body := form.Response(nil)
//	}
package elicitation

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

//go:build integration

package chat_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Chat server", func() {
	var env *serverEnv

	BeforeEach(func() {
		env = startChatServer(4, tempCredsPath())
	})

	AfterEach(func() {
		env.stop()
	})

	Describe("Account lifecycle", func() {
		It("registers a new user and announces it to everyone", func() {
			alice := connectAndGreet(env.addr)
			defer alice.close()
			observer := connectAndGreet(env.addr)
			defer observer.close()

			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")
			observer.expectLine("alice logged in with a new account.")

			alice.send("whoami")
			alice.expectLine("alice")
		})

		It("rejects duplicate registration and logs in with the stored password", func() {
			alice := connectAndGreet(env.addr)
			defer alice.close()

			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")

			imposter := connectAndGreet(env.addr)
			defer imposter.close()
			imposter.send("newuser alice other-password")
			imposter.expectLine("UserID already exists.")

			imposter.send("login alice password123")
			// Both the existing holder and the new session see the announcement.
			imposter.expectLine("alice logged in.")
			alice.expectLine("alice logged in.")
		})

		It("rejects a wrong password with the generic reply", func() {
			alice := connectAndGreet(env.addr)
			defer alice.close()
			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")

			other := connectAndGreet(env.addr)
			defer other.close()
			other.send("login alice wrong-password")
			other.expectLine("Username or password incorrect.")
			other.send("login ghost password123")
			other.expectLine("Username or password incorrect.")
		})

		It("logs out and returns the session to anonymous", func() {
			alice := connectAndGreet(env.addr)
			defer alice.close()
			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")

			alice.send("logout")
			alice.expectLine("alice logged out.")

			alice.send("whoami")
			Expect(alice.readLine()).To(MatchRegexp(`^Client \d+$`))
		})

		It("persists accounts across a server restart", func() {
			credsPath := env.credsPath

			alice := connectAndGreet(env.addr)
			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")
			alice.close()

			env.stop()
			env = startChatServer(4, credsPath)

			returning := connectAndGreet(env.addr)
			defer returning.close()
			returning.send("login alice password123")
			returning.expectLine("alice logged in.")
		})
	})

	Describe("Anonymous sessions", func() {
		It("denies chat and logout before login", func() {
			anon := connectAndGreet(env.addr)
			defer anon.close()

			anon.send("send all hello")
			anon.expectLine("Denied.  Please log in first.")

			anon.send("logout")
			anon.expectLine("You are not logged in. ")
		})

		It("replies to unknown commands", func() {
			anon := connectAndGreet(env.addr)
			defer anon.close()

			anon.send("frobnicate now")
			anon.expectLine("Command not understood.")
		})
	})

	Describe("Messaging", func() {
		var alice, bob *client

		BeforeEach(func() {
			alice = connectAndGreet(env.addr)
			bob = connectAndGreet(env.addr)

			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")
			bob.expectLine("alice logged in with a new account.")

			bob.send("newuser bob password456")
			bob.expectLine("bob logged in with a new account.")
			alice.expectLine("bob logged in with a new account.")
		})

		AfterEach(func() {
			alice.close()
			bob.close()
		})

		It("delivers direct messages with sender echo", func() {
			alice.send("send bob hi there")
			bob.expectLine("alice (to you): hi there ")
			alice.expectLine("alice (to bob): hi there")
		})

		It("broadcasts to every authenticated session", func() {
			anon := connectAndGreet(env.addr)
			defer anon.close()

			alice.send("send all hello everyone")
			alice.expectLine("alice: hello everyone")
			bob.expectLine("alice: hello everyone")

			// The anonymous observer gets nothing; prove it by making the
			// next line it reads a reply to its own command.
			anon.send("whoami")
			Expect(anon.readLine()).To(MatchRegexp(`^Client \d+$`))
		})

		It("reports unknown recipients", func() {
			alice.send("send ghost hello")
			alice.expectLine("ghost is not on this server. ")
		})

		It("echoes self-addressed messages without delivering twice", func() {
			alice.send("send alice remember this")
			alice.expectLine("Message from yourself: remember this")
		})

		It("lists logged in users with who", func() {
			alice.send("who")
			var lines []string
			for i := 0; i < 3; i++ {
				lines = append(lines, alice.readLine())
			}
			joined := strings.Join(lines, "\n")
			Expect(joined).To(ContainSubstring("alice"))
			Expect(joined).To(ContainSubstring("bob"))
			Expect(lines[2]).To(Equal("2 logged in users."))
		})
	})

	Describe("Exit", func() {
		It("announces the departure to everyone else and closes the connection", func() {
			alice := connectAndGreet(env.addr)
			observer := connectAndGreet(env.addr)
			defer observer.close()

			alice.send("newuser alice password123")
			alice.expectLine("alice logged in with a new account.")
			observer.expectLine("alice logged in with a new account.")

			alice.send("exit")
			alice.expectClosed()
			Expect(observer.readLine()).To(MatchRegexp(
				`^alice logged out\.  Client \d+ disconnected from room\.$`))
		})
	})
})

var _ = Describe("Capacity", func() {
	var env *serverEnv

	BeforeEach(func() {
		env = startChatServer(2, tempCredsPath())
	})

	AfterEach(func() {
		env.stop()
	})

	It("rejects connections past the bound and frees slots on disconnect", func() {
		first := connectAndGreet(env.addr)
		defer first.close()
		second := connectAndGreet(env.addr)

		overflow := connect(env.addr)
		overflow.expectLine("Server is full.  Goodbye.")
		overflow.expectClosed()

		second.send("exit")
		second.expectClosed()

		// The freed slot admits a new connection. Teardown runs just
		// after the transport closes, so poll until admission sticks.
		Eventually(func() string {
			c := connect(env.addr)
			defer c.close()
			line, err := func() (string, error) {
				if err := c.conn.SetReadDeadline(deadline()); err != nil {
					return "", err
				}
				return c.reader.ReadString('\n')
			}()
			if err != nil {
				return ""
			}
			return line
		}, 10*time.Second, 100*time.Millisecond).Should(HavePrefix("Welcome to the server."))
	})
})

func deadline() time.Time {
	return time.Now().Add(2 * time.Second)
}

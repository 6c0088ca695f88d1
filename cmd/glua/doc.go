// This file is part of glua.
//
// Copyright 2024 The glua Authors.
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

// Command glua is a from-scratch Lua 5.1 interpreter: lexer, parser,
// compiler and register-based bytecode VM, with a standard library
// covering base, string, table, math, os, io and coroutine.
//
// Usage:
//
//	glua [options] [script [args]]
//
//	-e chunk
//	      execute chunk before the script (or instead of one)
//	-i
//	      enter interactive mode after running the script
//	-v
//	      print version information and exit
//	--
//	      end of options; everything after is the script and its arguments
//	-
//	      read the script from standard input
//
// With no script and no -e chunk, glua enters interactive mode directly.
// Script arguments are exposed to the running chunk as the global `arg`
// table: arg[0] is the script name, arg[1..] are its trailing arguments.
//
// Exit codes: 0 success, 1 runtime error, 2 syntax error, 3 I/O error.
//
// GLUA_INIT, if set, is run as a chunk of Lua code before the script.
// GLUA_MAXCALLDEPTH overrides the default call-stack depth limit.
package main
